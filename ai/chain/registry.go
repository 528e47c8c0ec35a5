// Package chain dispatches generation requests over a ranked, degrading
// list of text generators.
package chain

import (
	"os"
	"sort"
	"strings"

	"github.com/argoclaw/Clawtter-Argo/ai/core/llm"
)

// Tier orders candidates; lower tiers are tried first.
type Tier int

const (
	TierLocal   Tier = 1
	TierLowCost Tier = 2
	TierHosted  Tier = 3
)

// Candidate is one provider/model pairing, rebuilt from the registry on
// every call.
type Candidate struct {
	Method     llm.Method
	ProviderID string
	ModelID    string
	Tier       Tier
}

// Key is the provider/model identifier.
func (c Candidate) Key() string {
	return c.ProviderID + "/" + c.ModelID
}

// ProviderConfig is one provider entry of the registry file.
type ProviderConfig struct {
	API     string        `yaml:"api"`
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Models  []ModelConfig `yaml:"models"`
}

// ModelConfig names one model of a provider.
type ModelConfig struct {
	ID    string `yaml:"id"`
	Alias string `yaml:"alias"`
}

// LastResortConfig is the endpoint tried after everything else failed.
type LastResortConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"baseUrl"`
	APIKey   string `yaml:"apiKey"`
}

// Registry is the provider configuration file.
type Registry struct {
	Providers  map[string]ProviderConfig `yaml:"providers"`
	LowCost    []string                  `yaml:"lowCost"`
	Secondary  []string                  `yaml:"secondary"`
	CLIBinary  string                    `yaml:"cliBinary"`
	LastResort LastResortConfig          `yaml:"lastResort"`
}

// DefaultLowCost lists the providers placed in TierLowCost when the
// registry does not say otherwise.
var DefaultLowCost = []string{"qwen-portal", "nvidia", "nvidia-kimi"}

// MethodOf maps a registry api name onto an endpoint shape.
func MethodOf(api string) llm.Method {
	switch strings.ToLower(api) {
	case "cli", "local":
		return llm.MethodCLI
	case "google", "google-generative-ai", "gemini":
		return llm.MethodGoogle
	default:
		return llm.MethodChat
	}
}

// Provider returns the expanded configuration of id.
func (r *Registry) Provider(id string) (ProviderConfig, bool) {
	p, ok := r.Providers[id]
	if !ok {
		return p, false
	}
	p.APIKey = os.ExpandEnv(p.APIKey)
	return p, true
}

// Candidates lists every configured model with its tier, in a stable
// order.
func (r *Registry) Candidates() []Candidate {
	lowCost := r.LowCost
	if len(lowCost) == 0 {
		lowCost = DefaultLowCost
	}
	cheap := make(map[string]bool, len(lowCost))
	for _, id := range lowCost {
		cheap[id] = true
	}

	ids := make([]string, 0, len(r.Providers))
	for id := range r.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Candidate
	for _, id := range ids {
		p := r.Providers[id]
		method := MethodOf(p.API)
		tier := TierHosted
		switch {
		case method == llm.MethodCLI:
			tier = TierLocal
		case cheap[id]:
			tier = TierLowCost
		}
		for _, m := range p.Models {
			if m.ID == "" {
				continue
			}
			out = append(out, Candidate{Method: method, ProviderID: id, ModelID: m.ID, Tier: tier})
		}
	}
	return out
}

// SecondaryCandidates is the flat backup list: explicit entries or every
// provider/model id, in configured order and capped at limit. Each entry is
// run through the local CLI.
func (r *Registry) SecondaryCandidates(limit int) []Candidate {
	names := append([]string(nil), r.Secondary...)
	if len(names) == 0 {
		for _, c := range r.Candidates() {
			names = append(names, c.Key())
		}
	}
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	out := make([]Candidate, 0, len(names))
	for _, name := range names {
		out = append(out, Candidate{Method: llm.MethodCLI, ProviderID: "secondary", ModelID: name, Tier: TierLocal})
	}
	return out
}
