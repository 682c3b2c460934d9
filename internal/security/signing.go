package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	PublicKeyFile  = "approver.pub"
	PrivateKeyFile = "approver.priv"
)

// KeyPair is the ed25519 identity used to sign approval records
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeyPair creates a new ed25519 key pair
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// Save writes both keys hex encoded into dir
func (kp *KeyPair) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, PublicKeyFile), []byte(hex.EncodeToString(kp.Public)), 0600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, PrivateKeyFile), []byte(hex.EncodeToString(kp.Private)), 0600)
}

// LoadKeyPair reads a pair previously written by Save
func LoadKeyPair(dir string) (*KeyPair, error) {
	pub, err := LoadPublicKey(filepath.Join(dir, PublicKeyFile))
	if err != nil {
		return nil, fmt.Errorf("load public key: %w", err)
	}
	priv, err := LoadPrivateKey(filepath.Join(dir, PrivateKeyFile))
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}
	if !pub.Equal(priv.Public()) {
		return nil, errors.New("public key does not match private key")
	}
	return &KeyPair{Public: pub, Private: priv}, nil
}

// LoadPublicKeyPair reads only the public key from dir. The result can
// verify a ledger but not sign for it.
func LoadPublicKeyPair(dir string) (*KeyPair, error) {
	pub, err := LoadPublicKey(filepath.Join(dir, PublicKeyFile))
	if err != nil {
		return nil, fmt.Errorf("load public key: %w", err)
	}
	return &KeyPair{Public: pub}, nil
}

// EnsureKeyPair loads the pair in dir or generates one when the public key
// file is missing. The bool reports whether a new pair was created.
func EnsureKeyPair(dir string) (*KeyPair, bool, error) {
	if _, err := os.Stat(filepath.Join(dir, PublicKeyFile)); os.IsNotExist(err) {
		kp, err := GenerateKeyPair()
		if err != nil {
			return nil, false, err
		}
		if err := kp.Save(dir); err != nil {
			return nil, false, fmt.Errorf("save key pair: %w", err)
		}
		return kp, true, nil
	}
	kp, err := LoadKeyPair(dir)
	return kp, false, err
}

// LoadPrivateKey loads an ed25519 private key from a hex-encoded file
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	keyBytes, err := readHex(path)
	if err != nil {
		return nil, err
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	return ed25519.PrivateKey(keyBytes), nil
}

// LoadPublicKey loads an ed25519 public key from a hex-encoded file
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	keyBytes, err := readHex(path)
	if err != nil {
		return nil, err
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return nil, errors.New("invalid public key size")
	}
	return ed25519.PublicKey(keyBytes), nil
}

func readHex(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimSpace(string(data)))
}

// SignData signs arbitrary data and returns the hex signature
func SignData(priv ed25519.PrivateKey, data []byte) string {
	return hex.EncodeToString(ed25519.Sign(priv, data))
}

// VerifySignature checks a hex signature of data against pub
func VerifySignature(pub ed25519.PublicKey, data []byte, sigHex string) (bool, error) {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, data, sig), nil
}
