package client

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/poller"
	"github.com/BaSui01/anythingworld/types"
)

// generatedMeshFile is the name the generated mesh is re-uploaded under.
const generatedMeshFile = "model.glb"

// DownloadFile streams url into path, retrying transient failures.
func (c *Client) DownloadFile(ctx context.Context, url, path string) (int64, error) {
	return c.transport.Download(ctx, url, path)
}

// GenerateAnimatedFromText generates a model from a prompt, then animates it.
// opts applies to both waits. The final animate document is returned.
func (c *Client) GenerateAnimatedFromText(ctx context.Context, req TextTo3DRequest, opts poller.Options) (types.StatusDocument, error) {
	sub, err := c.GenerateFromText(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.animateGenerated(ctx, sub.JobID, req.Prompt, opts)
}

// GenerateAnimatedFromImage generates a model from an image, then animates it.
func (c *Client) GenerateAnimatedFromImage(ctx context.Context, req ImageTo3DRequest, opts poller.Options) (types.StatusDocument, error) {
	sub, err := c.GenerateFromImage(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.animateGenerated(ctx, sub.JobID, req.ModelName, opts)
}

// animateGenerated waits for a generate job, downloads its glb mesh into a
// temporary directory and submits that mesh for animation.
func (c *Client) animateGenerated(ctx context.Context, id types.JobID, fallbackName string, opts poller.Options) (types.StatusDocument, error) {
	generated, err := c.GetGeneratedModel(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	meshURL, ok := generated.LookupString("model", "mesh", "glb")
	if !ok {
		return nil, types.NewError(types.ErrAPI, "generated model has no glb mesh").WithJobID(id)
	}

	dir, err := os.MkdirTemp(c.tempDir, "anythingworld-*")
	if err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "create temporary directory").WithCause(err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Warn("remove temporary directory", zap.String("dir", dir), zap.Error(err))
		}
	}()

	if _, err := c.DownloadFile(ctx, meshURL, filepath.Join(dir, generatedMeshFile)); err != nil {
		return nil, err
	}

	name := generated.Name()
	if name == "" {
		name = fallbackName
	}
	sub, err := c.Animate(ctx, AnimateRequest{
		FilesDir:   dir,
		ModelName:  name,
		AutoRotate: Bool(true),
		Symmetric:  Bool(true),
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("generated model sent to animation",
		zap.String("generate_job_id", string(id)),
		zap.String("animate_job_id", string(sub.JobID)),
	)
	return c.GetAnimatedModel(ctx, sub.JobID, types.DetailDefault, opts)
}
