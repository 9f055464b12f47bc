package models

// LLMModel is one catalog entry the shell can select as the active model.
// Key is the stable identifier persisted in settings; APIName is what the
// provider client is constructed with.
type LLMModel struct {
	Key          string `json:"key"`
	DisplayName  string `json:"displayName"`
	APIName      string `json:"apiName"`
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName"`
	MaxTokens    int    `json:"maxTokens,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// LLMModelGroup groups catalog entries by provider for presentation.
type LLMModelGroup struct {
	ProviderID   string     `json:"providerId"`
	ProviderName string     `json:"providerName"`
	Models       []LLMModel `json:"models"`
}
