package session

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/objectpool/pkg/poolerrors"
)

// Kind is the kind of world a session runs
type Kind int

const (
	KindNone Kind = iota
	KindGame
	KindEditor
	KindPIE
	KindEditorPreview
	KindGamePreview
	KindGameRPC
	KindInactive
)

var kindNames = map[Kind]string{
	KindNone:          "none",
	KindGame:          "game",
	KindEditor:        "editor",
	KindPIE:           "pie",
	KindEditorPreview: "editor_preview",
	KindGamePreview:   "game_preview",
	KindGameRPC:       "game_rpc",
	KindInactive:      "inactive",
}

// String returns the configuration name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// SupportsPooling reports whether sessions of this kind get a pool registry.
// Only worlds that actually play do.
func (k Kind) SupportsPooling() bool {
	switch k {
	case KindGame, KindPIE, KindGamePreview, KindGameRPC:
		return true
	default:
		return false
	}
}

// ParseKind resolves a configuration name, case-insensitively
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for kind, kindName := range kindNames {
		if kindName == normalized {
			return kind, nil
		}
	}
	return KindNone, poolerrors.New(poolerrors.ErrorTypeConfig, fmt.Sprintf("unknown session kind %q", name))
}
