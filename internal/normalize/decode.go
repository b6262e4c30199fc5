package normalize

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// DecodeBase64URL decodes the URL-safe alphabet with or without padding.
// Some senders leave standard-alphabet characters in, so those are mapped too.
func DecodeBase64URL(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, nil
	}
	data = strings.NewReplacer("+", "-", "/", "_", "\r", "", "\n", "").Replace(data)
	data = strings.TrimRight(data, "=")

	decoded, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64url body")
	}
	return decoded, nil
}

func EncodeBase64URL(data []byte) string {
	return base64.URLEncoding.EncodeToString(data)
}
