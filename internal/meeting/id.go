package meeting

import (
	"context"
	"crypto/rand"
	"fmt"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateID produces a public meeting code in the ^[A-Z0-9]{3}-[A-Z0-9]{3}-[A-Z0-9]{3}$
// format, retrying on collision (checked via exists) up to a fixed bound.
func GenerateID(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < 20; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("meeting: exhausted id generation attempts")
}

func randomCode() (string, error) {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 11)
	pos := 0
	for i := 0; i < 9; i++ {
		if i == 3 || i == 6 {
			out[pos] = '-'
			pos++
		}
		out[pos] = idAlphabet[int(buf[i])%len(idAlphabet)]
		pos++
	}
	return string(out), nil
}
