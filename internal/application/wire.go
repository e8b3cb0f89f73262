package application

import (
	"github.com/google/wire"
	"github.com/memtier/backend/internal/application/contextengine"
	"github.com/memtier/backend/internal/application/knowledge"
	"github.com/memtier/backend/internal/application/signals"
	"github.com/memtier/backend/internal/application/workingmem"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	workingmem.ProviderSet,
	knowledge.ProviderSet,
	signals.ProviderSet,
	contextengine.ProviderSet,
)
