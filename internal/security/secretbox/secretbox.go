// Package secretbox implementa el puerto de cifrado autenticado del proxy:
// Seal(purpose, plaintext) -> ciphertext / Open(purpose, ciphertext) -> plaintext.
// AES-256-GCM con clave maestra en SECRETBOX_MASTER_KEY (base64). El purpose
// se autentica como AAD: un ciphertext sellado bajo un purpose no abre bajo otro.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	secretBoxEnvVar   = "SECRETBOX_MASTER_KEY"
	nonceSizeGCM      = 12  // AES-GCM nonce recomendado (96 bits)
	requiredKeyLength = 32  // 32 bytes => AES-256
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

// ErrOpenFailed cubre cualquier fallo de autenticación/descifrado.
// No se distingue tamper de purpose equivocado: ambos son "no abre".
var ErrOpenFailed = errors.New("secretbox: open failed")

var (
	masterKey     []byte
	masterKeyOnce sync.Once
	loadErr       error
	mu            sync.RWMutex
)

// ensureLoaded carga la clave maestra desde SECRETBOX_MASTER_KEY (base64) una sola vez.
func ensureLoaded() error {
	masterKeyOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(secretBoxEnvVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s no seteada; genere una clave con: proxyjohn keys", secretBoxEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", secretBoxEnvVar, err)
			return
		}
		if len(k) != requiredKeyLength {
			loadErr = fmt.Errorf("%s debe decodificar a %d bytes, obtuvo %d", secretBoxEnvVar, requiredKeyLength, len(k))
			return
		}
		mu.Lock()
		masterKey = make([]byte, len(k))
		copy(masterKey, k)
		mu.Unlock()
	})
	return loadErr
}

// Ready expone si la clave está cargada (útil para healthchecks/config print).
func Ready() bool {
	mu.RLock()
	defer mu.RUnlock()
	return len(masterKey) == requiredKeyLength
}

func gcm() (cipher.AEAD, error) {
	mu.RLock()
	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	mu.RUnlock()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return aead, nil
}

// Seal cifra plainText bajo el purpose dado y devuelve base64(nonce)|base64(ciphertext).
func Seal(purpose, plainText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	aead, err := gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}

	ct := aead.Seal(nil, nonce, []byte(plainText), []byte(purpose))

	nonceB64 := base64.StdEncoding.EncodeToString(nonce)
	ctB64 := base64.StdEncoding.EncodeToString(ct)
	return nonceB64 + sep + ctB64, nil
}

// Open recibe base64(nonce)|base64(ciphertext) y devuelve el texto plano.
// Falla con ErrOpenFailed si el ciphertext no autentica bajo el purpose dado.
func Open(purpose, cipherText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", ErrOpenFailed
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrOpenFailed
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrOpenFailed
	}
	if len(nonce) != nonceSizeGCM {
		return "", ErrOpenFailed
	}

	aead, err := gcm()
	if err != nil {
		return "", err
	}

	pt, err := aead.Open(nil, nonce, ct, []byte(purpose))
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(pt), nil
}

// GenerateMasterKey genera una clave nueva (32 bytes, base64) para SECRETBOX_MASTER_KEY.
func GenerateMasterKey() (string, error) {
	k := make([]byte, requiredKeyLength)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		return "", fmt.Errorf("random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(k), nil
}

// --- Helpers para tests ---

// UnsafeResetSecretBoxForTests borra estado interno. Usar sólo en tests.
func UnsafeResetSecretBoxForTests() {
	mu.Lock()
	masterKey = nil
	mu.Unlock()
	masterKeyOnce = sync.Once{}
	loadErr = nil
}

// UnsafeSetMasterKeyForTests permite setear una clave cruda (32 bytes) en tests.
func UnsafeSetMasterKeyForTests(k []byte) error {
	if len(k) != requiredKeyLength {
		return fmt.Errorf("clave inválida para test: se requieren %d bytes", requiredKeyLength)
	}
	UnsafeResetSecretBoxForTests()
	mu.Lock()
	masterKey = make([]byte, len(k))
	copy(masterKey, k)
	mu.Unlock()
	// Consumir el Once para que ensureLoaded no pise la clave con el env.
	masterKeyOnce.Do(func() {})
	return nil
}
