package factory

import (
	"fmt"
	"os"

	"voice-journal-be/pkg/llm"
	"voice-journal-be/pkg/llm/huggingface"
	"voice-journal-be/pkg/llm/ollama"
)

// NewLLMProvider builds the configured chat provider.
// Supported: "ollama" (default), "huggingface".
func NewLLMProvider(providerName string) (llm.LLMProvider, error) {
	switch providerName {
	case "", "ollama":
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		modelName := os.Getenv("OLLAMA_MODEL")
		if modelName == "" {
			modelName = "llama3.2"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil

	case "huggingface":
		apiKey := os.Getenv("HUGGINGFACE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("HUGGINGFACE_API_KEY is required for huggingface provider")
		}
		modelName := os.Getenv("HUGGINGFACE_MODEL")
		if modelName == "" {
			modelName = "meta-llama/Llama-3.2-3B-Instruct"
		}
		return huggingface.NewHuggingFaceProvider(apiKey, modelName), nil

	default:
		return nil, fmt.Errorf("unknown llm provider: %s", providerName)
	}
}
