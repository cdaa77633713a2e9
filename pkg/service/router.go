package service

import (
	"github.com/giankylabs/relayer/pkg/chains"
)

// RouterSource adapts *chains.Router to the ChainSource the API needs
type RouterSource struct {
	Router *chains.Router
}

// Chain resolves a chain client by id
func (r RouterSource) Chain(chainID int64) (Chain, error) {
	return r.Router.Client(chainID)
}

// Chains returns every configured chain
func (r RouterSource) Chains() []Chain {
	all := r.Router.All()
	out := make([]Chain, 0, len(all))
	for _, client := range all {
		out = append(out, client)
	}
	return out
}
