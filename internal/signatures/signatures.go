// Package signatures embeds the default technology signature document.
package signatures

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
)

//go:embed signatures.json
var document []byte

var (
	defaultOnce sync.Once
	defaultDB   *models.SignatureDatabase
	defaultErr  error
)

// Raw returns a copy of the embedded signature document
func Raw() []byte {
	return append([]byte(nil), document...)
}

// Default returns the compiled embedded database. It is compiled once and
// shared; callers must treat it as read-only.
func Default() (*models.SignatureDatabase, error) {
	defaultOnce.Do(func() {
		defaultDB, defaultErr = parser.Load(document)
		if defaultErr != nil {
			defaultErr = fmt.Errorf("embedded signatures: %w", defaultErr)
		}
	})
	return defaultDB, defaultErr
}
