package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/BaSui01/anythingworld/assets"
	"github.com/BaSui01/anythingworld/jobstore"
	"github.com/BaSui01/anythingworld/transport"
	"github.com/BaSui01/anythingworld/types"
)

// SubmitResponse is the result of a submission: the issued job id and the
// full decoded response it came with.
type SubmitResponse struct {
	JobID    types.JobID          `json:"job_id" yaml:"job_id"`
	Document types.StatusDocument `json:"document" yaml:"document"`
}

// Animate uploads the files under req.FilesDir and starts an animate job.
func (c *Client) Animate(ctx context.Context, req AnimateRequest) (*SubmitResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	found, err := assets.ReadFiles(req.FilesDir)
	if err != nil {
		return nil, err
	}
	files, closeAll, err := openAssets(found)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	sub, err := c.submit(ctx, endpointAnimate, req.Form(), files)
	if err != nil {
		return nil, err
	}
	c.saveJob(ctx, sub, types.JobKindAnimate, req.ModelName)
	return sub, nil
}

// GenerateFromText starts a text-to-3D generation job.
func (c *Client) GenerateFromText(ctx context.Context, req TextTo3DRequest) (*SubmitResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sub, err := c.submit(ctx, endpointTextTo3D, req.Form(), nil)
	if err != nil {
		return nil, err
	}
	c.saveJob(ctx, sub, types.JobKindGenerate, req.Prompt)
	return sub, nil
}

// GenerateFromImage uploads one image and starts an image-to-3D generation job.
func (c *Client) GenerateFromImage(ctx context.Context, req ImageTo3DRequest) (*SubmitResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	found, err := assets.ReadFiles(req.FilePath)
	if err != nil {
		return nil, err
	}
	if len(found) != 1 {
		return nil, types.Errorf(types.ErrInvalidRequest, "image-to-3d: %q is not a single file", req.FilePath)
	}
	files, closeAll, err := openAssets(found)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	sub, err := c.submit(ctx, endpointImageTo3D, req.Form(), files)
	if err != nil {
		return nil, err
	}
	c.saveJob(ctx, sub, types.JobKindGenerate, req.ModelName)
	return sub, nil
}

// submit performs exactly one POST. The service answers with a list whose
// first element describes the new job.
func (c *Client) submit(ctx context.Context, endpoint string, form url.Values, files []transport.File) (*SubmitResponse, error) {
	form.Set(fieldKey, c.apiKey)
	form.Set(fieldPlatform, c.platform)

	resp, err := c.transport.Do(ctx, transport.Request{
		Method:   http.MethodPost,
		URL:      c.endpointURL(endpoint),
		Endpoint: endpoint,
		Query:    c.stagingQuery(),
		Form:     form,
		Files:    files,
	})
	if err == nil {
		var sub *SubmitResponse
		sub, err = submitResponse(endpoint, resp.Body)
		if err == nil {
			c.recordSubmission(endpoint, nil)
			c.logger.Info("job submitted",
				zap.String("endpoint", endpoint),
				zap.String("job_id", string(sub.JobID)),
				zap.String("request_id", resp.RequestID),
			)
			return sub, nil
		}
	}
	c.recordSubmission(endpoint, err)
	return nil, err
}

func submitResponse(endpoint string, body any) (*SubmitResponse, error) {
	if list, ok := body.([]any); ok {
		if len(list) == 0 {
			return nil, types.Errorf(types.ErrAPI, "%s: empty submission response", endpoint)
		}
		body = list[0]
	}
	doc, err := transport.AsDocument(body)
	if err != nil {
		return nil, err
	}
	id, ok := doc.ModelID()
	if !ok {
		return nil, types.Errorf(types.ErrAPI, "%s: response has no model_id", endpoint)
	}
	return &SubmitResponse{JobID: id, Document: doc}, nil
}

func (c *Client) recordSubmission(endpoint string, err error) {
	if c.metrics != nil {
		c.metrics.RecordSubmission(endpoint, err)
	}
}

// openAssets opens every asset for upload. The returned func closes them all.
func openAssets(found []assets.Asset) ([]transport.File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	files := make([]transport.File, 0, len(found))
	for _, a := range found {
		f, err := os.Open(a.Path)
		if err != nil {
			closeAll()
			return nil, nil, types.Errorf(types.ErrInvalidRequest, "open %s", filepath.Base(a.Path)).WithCause(err)
		}
		opened = append(opened, f)
		files = append(files, transport.File{
			Field:       transport.DefaultFileField,
			Name:        a.Name,
			ContentType: a.ContentType,
			Body:        f,
		})
	}
	return files, closeAll, nil
}

// saveJob records a fresh submission. Store failures are only logged.
func (c *Client) saveJob(ctx context.Context, sub *SubmitResponse, kind types.JobKind, fallbackName string) {
	if c.store == nil {
		return
	}
	name := sub.Document.Name()
	if name == "" {
		name = fallbackName
	}
	job := &jobstore.Job{
		ID:     sub.JobID,
		Kind:   kind,
		Detail: types.DetailDefault,
		Name:   name,
		State:  jobstore.StatePending,
	}
	if stage, ok := sub.Document.Stage(); ok {
		job.Stage = stage
	}
	c.storeErr("save", sub.JobID, c.store.Save(context.WithoutCancel(ctx), job))
}

func (c *Client) storeErr(op string, id types.JobID, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	c.logger.Warn("job store operation failed",
		zap.String("operation", op),
		zap.String("job_id", string(id)),
		zap.Error(err),
	)
}
