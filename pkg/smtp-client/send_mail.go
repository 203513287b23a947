package smtpclient

import (
	"errors"
	"log/slog"
	"net/textproto"

	"github.com/knadh/smtppool"

	messagingTypes "github.com/ident-framework/ident-backend/pkg/messaging/types"
)

func (sc *SmtpClients) SendMail(
	to []string,
	subject string,
	htmlContent string,
	overrides *messagingTypes.HeaderOverrides,
) error {
	sc.counter += 1
	if len(sc.connectionPool) < 1 {
		sc.connectionPool = initConnectionPool(sc.servers)
		if len(sc.connectionPool) < 1 {
			return errors.New("no servers defined")
		}
	}

	index := int(sc.counter % uint64(len(sc.connectionPool)))
	selectedServer := sc.connectionPool[index]

	from := sc.servers.From
	sender := sc.servers.Sender
	replyTo := sc.servers.ReplyTo

	if overrides != nil {
		if overrides.From != "" {
			from = overrides.From
		}
		if overrides.Sender != "" {
			sender = overrides.Sender
		}

		if overrides.NoReplyTo {
			replyTo = []string{}
		} else if len(overrides.ReplyTo) > 0 {
			replyTo = overrides.ReplyTo
		}
	}

	e := smtppool.Email{
		To:      to,
		From:    from,
		Sender:  sender,
		ReplyTo: replyTo,
		Subject: subject,
		HTML:    []byte(htmlContent),
		Headers: textproto.MIMEHeader{},
	}
	// Send timeouts are handled by the pool options set in connectToPool.
	err := selectedServer.Send(e)
	if err != nil {
		// close and try to reconnect
		slog.Error("error when trying to send email", slog.String("error", err.Error()))

		pool, errReconnect := connectToPool(sc.servers.Servers[index])
		if errReconnect != nil {
			slog.Error("cannot reconnect pool", slog.String("error", errReconnect.Error()), slog.String("server", sc.servers.Servers[index].Host))
		} else {
			slog.Info("reconnected to pool", slog.String("server", sc.servers.Servers[index].Host))
			sc.connectionPool[index] = pool
		}
	}
	return err
}
