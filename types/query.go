package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

type ChatParams struct {
	Question string `json:"question" validate:"required"`
}

type SourceInput struct {
	Kind      string `json:"kind" validate:"required,oneof=file url confluence"`
	Path      string `json:"path,omitempty"`
	URL       string `json:"url,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	Username  string `json:"username,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	SpaceKey  string `json:"space_key,omitempty"`
	PageLimit int    `json:"page_limit,omitempty"`
}

// Descriptor converts the wire representation into a SourceDescriptor.
func (s SourceInput) Descriptor() SourceDescriptor {
	switch SourceKind(s.Kind) {
	case SourceURL:
		return URLSource(s.URL)
	case SourceConfluence:
		return ConfluenceSource(s.BaseURL, s.Username, s.APIKey, s.SpaceKey, s.PageLimit)
	default:
		return FileSource(s.Path)
	}
}

type SourceParams struct {
	Sources []SourceInput `json:"sources" validate:"required,min=1,dive"`
}

type ModelParams struct {
	Name   string `json:"name"`
	Local  bool   `json:"local"`
	APIKey string `json:"api_key,omitempty"`
}

type RetrieverParams struct {
	EmbeddingsModel string `json:"embeddings_model" validate:"required"`
}

type PromptParams struct {
	SystemPrompt string `json:"system_prompt" validate:"required"`
}

func (params *ChatParams) Validate() map[string]string      { return validateStruct(params) }
func (params *SourceParams) Validate() map[string]string    { return validateStruct(params) }
func (params *ModelParams) Validate() map[string]string     { return validateStruct(params) }
func (params *RetrieverParams) Validate() map[string]string { return validateStruct(params) }
func (params *PromptParams) Validate() map[string]string    { return validateStruct(params) }

func validateStruct(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
