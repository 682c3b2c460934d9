package azure

import (
	"gopkg.in/yaml.v3"
)

// Pipeline is a loose model of an Azure DevOps YAML pipeline. Fields whose
// shape varies (trigger, pool, variables) stay as raw nodes.
type Pipeline struct {
	Trigger   yaml.Node `yaml:"trigger"`
	PR        yaml.Node `yaml:"pr"`
	Pool      yaml.Node `yaml:"pool"`
	Variables yaml.Node `yaml:"variables"`
	Stages    []Stage   `yaml:"stages"`
	Jobs      []Job     `yaml:"jobs"`
	Steps     []Step    `yaml:"steps"`
}

// Stage groups jobs; stages run in order unless dependsOn says otherwise
type Stage struct {
	Stage       string    `yaml:"stage"`
	DisplayName string    `yaml:"displayName"`
	DependsOn   yaml.Node `yaml:"dependsOn"`
	Jobs        []Job     `yaml:"jobs"`
}

// Job is a regular or deployment job
type Job struct {
	Job         string    `yaml:"job"`
	Deployment  string    `yaml:"deployment"`
	DisplayName string    `yaml:"displayName"`
	Pool        yaml.Node `yaml:"pool"`
	Steps       []Step    `yaml:"steps"`
}

// Step is one entry of a steps list; exactly one of the action keys is set
type Step struct {
	Script      string         `yaml:"script"`
	Bash        string         `yaml:"bash"`
	Pwsh        string         `yaml:"pwsh"`
	PowerShell  string         `yaml:"powershell"`
	Task        string         `yaml:"task"`
	Checkout    string         `yaml:"checkout"`
	Template    string         `yaml:"template"`
	DisplayName string         `yaml:"displayName"`
	Inputs      map[string]any `yaml:"inputs"`
}

// PipelineSummary is a shape overview of a decoded pipeline
type PipelineSummary struct {
	Triggers []string `json:"triggers"`
	Pool     string   `json:"pool,omitempty"`
	Stages   int      `json:"stages"`
	Jobs     int      `json:"jobs"`
	Steps    int      `json:"steps"`
	Tasks    []string `json:"tasks"`
}

// ParsePipeline decodes YAML content into a Pipeline
func ParsePipeline(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Summarize decodes yaml and counts its stages, jobs and steps.
func Summarize(text string) (*PipelineSummary, error) {
	p, err := ParsePipeline([]byte(text))
	if err != nil {
		return nil, err
	}

	s := &PipelineSummary{
		Triggers: triggerBranches(&p.Trigger),
		Pool:     poolName(&p.Pool),
		Stages:   len(p.Stages),
		Tasks:    []string{},
	}
	addSteps := func(steps []Step) {
		s.Steps += len(steps)
		for _, st := range steps {
			if st.Task != "" {
				s.Tasks = append(s.Tasks, st.Task)
			}
		}
	}
	addJobs := func(jobs []Job) {
		s.Jobs += len(jobs)
		for _, j := range jobs {
			addSteps(j.Steps)
		}
	}

	for _, st := range p.Stages {
		addJobs(st.Jobs)
	}
	addJobs(p.Jobs)
	addSteps(p.Steps)
	return s, nil
}

func triggerBranches(n *yaml.Node) []string {
	out := []string{}
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value != "" {
			out = append(out, n.Value)
		}
	case yaml.SequenceNode:
		out = append(out, scalars(n)...)
	case yaml.MappingNode:
		if branches := lookup(n, "branches"); branches != nil {
			if include := lookup(branches, "include"); include != nil {
				out = append(out, scalars(include)...)
			}
		}
	}
	return out
}

func poolName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value
	case yaml.MappingNode:
		if v := lookup(n, "vmImage"); v != nil {
			return v.Value
		}
		if v := lookup(n, "name"); v != nil {
			return v.Value
		}
	}
	return ""
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func scalars(n *yaml.Node) []string {
	var out []string
	for _, c := range n.Content {
		if c.Kind == yaml.ScalarNode {
			out = append(out, c.Value)
		}
	}
	return out
}
