package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// Box шифрует токены и PAT провайдеров перед записью в базу.
// Ключ — 32 байта, приходит из ENV в base64. Открытые секреты живут
// только в памяти процесса в момент исходящего вызова.
type Box struct {
	key [32]byte
}

var ErrDecrypt = errors.New("secrets: unable to decrypt value")

// NewBox разбирает base64-ключ. Пустой или кривой ключ — фатальная
// ошибка конфигурации: без него настройки с токенами бессмысленны.
func NewBox(base64Key string) (*Box, error) {
	raw, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("secrets: key is not valid base64: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("secrets: key must be 32 bytes, got %d", len(raw))
	}
	b := &Box{}
	copy(b.key[:], raw)
	return b, nil
}

// Encrypt возвращает base64(nonce || ciphertext). Пустая строка
// шифруется в пустую строку — незаполненная настройка остается пустой.
func (b *Box) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secrets: nonce generation failed: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt — обратная операция. Поврежденное значение или чужой ключ
// дают ErrDecrypt: вызывающий трактует это как "провайдер не настроен".
func (b *Box) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) < 24 {
		return "", ErrDecrypt
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plaintext, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
