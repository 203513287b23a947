package templates

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"

	messagingTypes "github.com/ident-framework/ident-backend/pkg/messaging/types"
)

// PickTranslation returns the translation for lang, falling back to the
// template's default language.
func PickTranslation(translations []messagingTypes.LocalizedTemplate, lang string, defaultLang string) messagingTypes.LocalizedTemplate {
	var fallback messagingTypes.LocalizedTemplate
	for _, tr := range translations {
		if tr.Lang == lang {
			return tr
		}
		if tr.Lang == defaultLang {
			fallback = tr
		}
	}
	return fallback
}

// RenderTranslation decodes the base64 template source and executes it with
// the given payload.
func RenderTranslation(name string, translation messagingTypes.LocalizedTemplate, payload map[string]string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(translation.TemplateDef)
	if err != nil {
		return "", fmt.Errorf("error when decoding template %s: %v", name, err)
	}
	return render(name, string(decoded), payload)
}

func render(name string, templateDef string, payload map[string]string) (string, error) {
	if strings.TrimSpace(templateDef) == "" {
		return "", errors.New("empty template `" + name + "`")
	}
	tmpl, err := template.New(name).Parse(templateDef)
	if err != nil {
		return "", fmt.Errorf("error when parsing template %s: %v", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", fmt.Errorf("error during executing template %s: %v", name, err)
	}
	return buf.String(), nil
}

// CheckAllTranslationsParsable is used at startup to fail fast on broken
// catalog entries.
func CheckAllTranslationsParsable(translations []messagingTypes.LocalizedTemplate, messageType string) error {
	if len(translations) == 0 {
		return errors.New("translation list is empty for `" + messageType + "`")
	}
	for _, tr := range translations {
		name := messageType + tr.Lang
		if _, err := RenderTranslation(name, tr, map[string]string{}); err != nil {
			return errors.New("could not resolve template for `" + tr.Lang + "` - error: " + err.Error())
		}
	}
	return nil
}
