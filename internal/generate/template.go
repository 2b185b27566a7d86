package generate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"scribe/internal/services"
)

// LoadTemplate reads the prompt template file. A missing or empty template is
// a configuration failure; runs never start without their instructions.
func LoadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrConfiguration, "generate", "load template", fmt.Sprintf("prompt file not found: %s", path), nil)
		}
		return "", services.Wrap(services.ErrConfiguration, "generate", "load template", fmt.Sprintf("read prompt template %s", path), err)
	}
	template := string(data)
	if strings.TrimSpace(template) == "" {
		return "", services.Wrap(services.ErrConfiguration, "generate", "load template", fmt.Sprintf("prompt template is empty: %s", path), nil)
	}
	return template, nil
}
