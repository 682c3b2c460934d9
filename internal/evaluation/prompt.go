package evaluation

import "fmt"

// reviewPrompt asks the model for a fixed-format review that Parse reads back.
const reviewPrompt = `You are an expert in CI/CD pipelines (Jenkins + Azure DevOps YAML).

Task: Evaluate the conversion of a Jenkins pipeline into Azure DevOps YAML.
 

Original Jenkins Pipeline:
%s

Converted Azure DevOps YAML:
%s

Please evaluate and provide short and concise:
1. QUALITY_SCORE (1-10): Overall conversion quality
2. COMPLETENESS (1-10): How complete is the conversion
3. BEST_PRACTICES (1-10): Adherence to Azure DevOps best practices
4. ISSUES: List any critical issues or missing elements
5. RECOMMENDATIONS: Specific short improvements
6. SUMMARY: Brief overall assessment

Use a **formal, basic vocabulary and technical tone**, as if you are preparing a short review for a DevOps team in a corporate environment.  
Format the structured short response as:
QUALITY_SCORE: X
COMPLETENESS: X  
BEST_PRACTICES: X
ISSUES: 1.issue 1
2.issue 2
RECOMMENDATIONS: 
 - short recommendation 1
 - short recommendation 2
SUMMARY: [brief summary]`

// Prompt builds the review request for a conversion.
func Prompt(jenkins, yaml string) string {
	return fmt.Sprintf(reviewPrompt, jenkins, yaml)
}
