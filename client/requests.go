package client

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/BaSui01/anythingworld/types"
)

// Form field names understood by the submission endpoints.
const (
	fieldKey                 = "key"
	fieldPlatform            = "platform"
	fieldModelName           = "model_name"
	fieldModelType           = "model_type"
	fieldSymmetry            = "symmetry"
	fieldAutoRotate          = "auto_rotate"
	fieldAutoClassify        = "auto_classify"
	fieldTextPrompt          = "text_prompt"
	fieldRefinePrompt        = "refine_prompt"
	fieldCanBePublic         = "can_be_public"
	fieldInternalImprovement = "can_use_for_internal_improvements"
)

// Bool returns a pointer to b, for the optional request flags.
func Bool(b bool) *bool { return &b }

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func setString(form url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		form.Set(key, value)
	}
}

func setBool(form url.Values, key string, value bool) {
	form.Set(key, strconv.FormatBool(value))
}

// AnimateRequest uploads a model to be rigged and animated.
type AnimateRequest struct {
	// FilesDir is a directory with the mesh and its textures, or a single file.
	FilesDir  string
	ModelName string
	// ModelType is optional; when empty the service classifies the model.
	ModelType string
	// AutoRotate lets the service fix the model orientation. Default true.
	AutoRotate *bool
	// Symmetric declares a symmetric model. Default true.
	Symmetric *bool
}

// Validate checks the required fields.
func (r AnimateRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.FilesDir) == "":
		return types.NewError(types.ErrInvalidRequest, "animate: files directory is required")
	case strings.TrimSpace(r.ModelName) == "":
		return types.NewError(types.ErrInvalidRequest, "animate: model name is required")
	}
	return nil
}

// Form returns the job fields. Key and platform are added by the client.
func (r AnimateRequest) Form() url.Values {
	form := url.Values{}
	setString(form, fieldModelName, r.ModelName)
	setString(form, fieldModelType, r.ModelType)
	setBool(form, fieldSymmetry, boolOr(r.Symmetric, true))
	setBool(form, fieldAutoRotate, boolOr(r.AutoRotate, true))
	setBool(form, fieldAutoClassify, strings.TrimSpace(r.ModelType) == "")
	return form
}

// TextTo3DRequest generates a model from a text prompt.
type TextTo3DRequest struct {
	Prompt string
	// RefinePrompt lets the service rewrite the prompt first. Default true.
	RefinePrompt                  *bool
	CanBePublic                   bool
	CanUseForInternalImprovements bool
}

func (r TextTo3DRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return types.NewError(types.ErrInvalidRequest, "text-to-3d: prompt is required")
	}
	return nil
}

func (r TextTo3DRequest) Form() url.Values {
	form := url.Values{}
	setString(form, fieldTextPrompt, r.Prompt)
	setBool(form, fieldRefinePrompt, boolOr(r.RefinePrompt, true))
	setBool(form, fieldInternalImprovement, r.CanUseForInternalImprovements)
	setBool(form, fieldCanBePublic, r.CanBePublic)
	return form
}

// ImageTo3DRequest generates a model from a single image.
type ImageTo3DRequest struct {
	FilePath                      string
	ModelName                     string
	CanBePublic                   bool
	CanUseForInternalImprovements bool
}

func (r ImageTo3DRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.FilePath) == "":
		return types.NewError(types.ErrInvalidRequest, "image-to-3d: file path is required")
	case strings.TrimSpace(r.ModelName) == "":
		return types.NewError(types.ErrInvalidRequest, "image-to-3d: model name is required")
	}
	return nil
}

func (r ImageTo3DRequest) Form() url.Values {
	form := url.Values{}
	setString(form, fieldModelName, r.ModelName)
	setBool(form, fieldCanBePublic, r.CanBePublic)
	setBool(form, fieldInternalImprovement, r.CanUseForInternalImprovements)
	return form
}
