package emailsending

import (
	"errors"
	"log/slog"

	"github.com/ident-framework/ident-backend/pkg/messaging/templates"
	messagingTypes "github.com/ident-framework/ident-backend/pkg/messaging/types"
	smtpclient "github.com/ident-framework/ident-backend/pkg/smtp-client"
)

var (
	smtpClients *smtpclient.SmtpClients
	catalog     messagingTypes.TemplateCatalog

	GlobalTemplateInfos = map[string]string{}
)

func Init(
	clients *smtpclient.SmtpClients,
	templateCatalog messagingTypes.TemplateCatalog,
	globalTemplateInfos map[string]string,
) error {
	smtpClients = clients
	catalog = templateCatalog
	if globalTemplateInfos != nil {
		GlobalTemplateInfos = globalTemplateInfos
	}
	for _, t := range catalog.EmailTemplates {
		if err := templates.CheckAllTranslationsParsable(t.Translations, t.MessageType); err != nil {
			return err
		}
	}
	return nil
}

// SendEmailByTemplate renders the catalog template for the message type and
// hands it to the SMTP pool.
func SendEmailByTemplate(
	to string,
	messageType string,
	lang string,
	payload map[string]string,
) error {
	if smtpClients == nil {
		return errors.New("smtp clients not initialized")
	}

	outgoing, err := prepOutgoingEmail(messageType, lang, payload, []string{to})
	if err != nil {
		return err
	}
	return smtpClients.SendMail(
		outgoing.To,
		outgoing.Subject,
		outgoing.Content,
		outgoing.HeaderOverrides,
	)
}

// SendEmailAsync delivers without blocking the request. Failures are logged,
// the caller already committed its own state.
func SendEmailAsync(
	to string,
	messageType string,
	lang string,
	payload map[string]string,
) error {
	go func() {
		if err := SendEmailByTemplate(to, messageType, lang, payload); err != nil {
			slog.Error("failed to send email",
				slog.String("messageType", messageType),
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

func prepOutgoingEmail(
	messageType string,
	lang string,
	payload map[string]string,
	to []string,
) (*messagingTypes.OutgoingEmail, error) {
	templateDef, ok := catalog.EmailTemplateByType(messageType)
	if !ok {
		return nil, errors.New("no email template for message type `" + messageType + "`")
	}

	translation := templates.PickTranslation(templateDef.Translations, lang, templateDef.DefaultLanguage)

	if payload == nil {
		payload = map[string]string{}
	}
	for k, v := range GlobalTemplateInfos {
		payload[k] = v
	}
	payload["language"] = lang

	templateName := messageType + lang
	content, err := templates.RenderTranslation(templateName, translation, payload)
	if err != nil {
		return nil, err
	}

	return &messagingTypes.OutgoingEmail{
		MessageType:     messageType,
		To:              to,
		HeaderOverrides: templateDef.HeaderOverrides,
		Subject:         translation.Subject,
		Content:         content,
	}, nil
}
