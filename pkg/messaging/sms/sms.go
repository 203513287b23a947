package sms

import (
	"errors"

	"github.com/ident-framework/ident-backend/pkg/messaging/templates"
	"github.com/ident-framework/ident-backend/pkg/messaging/types"
)

var (
	SmsGatewayConfig *types.SMSGatewayConfig
	catalog          types.TemplateCatalog
)

func Init(
	smsGatewayConfig *types.SMSGatewayConfig,
	templateCatalog types.TemplateCatalog,
) error {
	SmsGatewayConfig = smsGatewayConfig
	catalog = templateCatalog
	for _, t := range catalog.SMSTemplates {
		if err := templates.CheckAllTranslationsParsable(t.Translations, t.MessageType); err != nil {
			return err
		}
	}
	return nil
}

// SendSMS renders the catalog template for the message type and pushes the
// text through the gateway.
func SendSMS(to string, messageType string, lang string, payload map[string]string) error {
	templateDef, ok := catalog.SMSTemplateByType(messageType)
	if !ok {
		return errors.New("no sms template for message type `" + messageType + "`")
	}

	translation := templates.PickTranslation(templateDef.Translations, lang, templateDef.DefaultLanguage)

	if payload == nil {
		payload = map[string]string{}
	}
	payload["language"] = lang

	templateName := messageType + lang
	content, err := templates.RenderTranslation(templateName, translation, payload)
	if err != nil {
		return err
	}

	return runSMSsending(to, content, templateDef.From)
}
