package consumer

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/webitel/im-chat-service/config"
	"github.com/webitel/im-chat-service/internal/store/group"
	"github.com/webitel/im-chat-service/internal/store/history"
	"github.com/webitel/im-chat-service/internal/store/inbox"
	"github.com/webitel/im-chat-service/internal/store/seq"
)

var Module = fx.Module("consumer",
	fx.Provide(
		func(
			seqs seq.Cache,
			cps seq.Checkpoints,
			cfg *config.Config,
			ledger history.Ledger,
			mailbox inbox.Mailbox,
			groups group.Members,
			pusher Pusher,
			logger *slog.Logger,
		) *Service {
			return NewService(seqs, cps, cfg.Redis.SeqStep, ledger, mailbox, groups, pusher, logger)
		},
	),
)
