package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/anythingworld/types"
)

func TestAnimateRequest_Form(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		form := AnimateRequest{FilesDir: "fox", ModelName: "fox"}.Form()
		assert.Equal(t, "fox", form.Get(fieldModelName))
		assert.False(t, form.Has(fieldModelType))
		assert.Equal(t, "true", form.Get(fieldAutoClassify))
		assert.Equal(t, "true", form.Get(fieldSymmetry))
		assert.Equal(t, "true", form.Get(fieldAutoRotate))
		assert.False(t, form.Has(fieldKey), "key is added by the client")
	})

	t.Run("explicit type and flags", func(t *testing.T) {
		form := AnimateRequest{
			FilesDir:   "fox",
			ModelName:  "fox",
			ModelType:  "quadruped",
			AutoRotate: Bool(false),
			Symmetric:  Bool(false),
		}.Form()
		assert.Equal(t, "quadruped", form.Get(fieldModelType))
		assert.Equal(t, "false", form.Get(fieldAutoClassify))
		assert.Equal(t, "false", form.Get(fieldSymmetry))
		assert.Equal(t, "false", form.Get(fieldAutoRotate))
	})

	t.Run("blank type counts as empty", func(t *testing.T) {
		form := AnimateRequest{FilesDir: "fox", ModelName: "fox", ModelType: "  "}.Form()
		assert.False(t, form.Has(fieldModelType))
		assert.Equal(t, "true", form.Get(fieldAutoClassify))
	})
}

func TestTextTo3DRequest_Form(t *testing.T) {
	form := TextTo3DRequest{Prompt: "a red fox"}.Form()
	assert.Equal(t, "a red fox", form.Get(fieldTextPrompt))
	assert.Equal(t, "true", form.Get(fieldRefinePrompt))
	assert.Equal(t, "false", form.Get(fieldCanBePublic))
	assert.Equal(t, "false", form.Get(fieldInternalImprovement))

	form = TextTo3DRequest{Prompt: "fox", RefinePrompt: Bool(false), CanBePublic: true, CanUseForInternalImprovements: true}.Form()
	assert.Equal(t, "false", form.Get(fieldRefinePrompt))
	assert.Equal(t, "true", form.Get(fieldCanBePublic))
	assert.Equal(t, "true", form.Get(fieldInternalImprovement))
}

func TestImageTo3DRequest_Form(t *testing.T) {
	form := ImageTo3DRequest{FilePath: "fox.png", ModelName: "fox", CanBePublic: true}.Form()
	assert.Equal(t, "fox", form.Get(fieldModelName))
	assert.Equal(t, "true", form.Get(fieldCanBePublic))
	assert.Equal(t, "false", form.Get(fieldInternalImprovement))
	assert.False(t, form.Has("file_path"))
}

func TestRequests_Validate(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"animate without dir", AnimateRequest{ModelName: "fox"}.Validate()},
		{"animate without name", AnimateRequest{FilesDir: "fox"}.Validate()},
		{"text without prompt", TextTo3DRequest{Prompt: " "}.Validate()},
		{"image without path", ImageTo3DRequest{ModelName: "fox"}.Validate()},
		{"image without name", ImageTo3DRequest{FilePath: "fox.png"}.Validate()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, types.IsErrorCode(tt.err, types.ErrInvalidRequest), "got %v", tt.err)
		})
	}

	assert.NoError(t, AnimateRequest{FilesDir: "fox", ModelName: "fox"}.Validate())
	assert.NoError(t, TextTo3DRequest{Prompt: "fox"}.Validate())
	assert.NoError(t, ImageTo3DRequest{FilePath: "fox.png", ModelName: "fox"}.Validate())
}
