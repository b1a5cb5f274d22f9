// SPDX-License-Identifier: MPL-2.0

package isolation

import (
	"fmt"
	"plugin"
)

// openPlugin loads a Go plugin and reads its Exports variable.
func openPlugin(path string) ([]Symbol, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(ExportsSymbol)
	if err != nil {
		return nil, err
	}
	switch exports := sym.(type) {
	case *[]Symbol:
		return *exports, nil
	case func() []Symbol:
		return exports(), nil
	default:
		return nil, fmt.Errorf("plugin %s: %s has type %T, want []isolation.Symbol", path, ExportsSymbol, sym)
	}
}
