package group

import (
	"go.uber.org/fx"
)

var Module = fx.Module("group",
	fx.Provide(
		NewStore,
		fx.Annotate(func(s *Store) Members { return s }, fx.As(new(Members))),
	),
)
