// Package metadata publishes character NFT metadata as two dependent
// uploads: the rendered image first, then a JSON document that points at the
// image's retrieval URL.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"xdao.co/arena/tags"
	"xdao.co/arena/upload"
)

const contentTypeJSON = "application/json"

// Uploader stores a payload and returns where it can be fetched.
// *upload.Client implements it.
type Uploader interface {
	Upload(ctx context.Context, payload []byte, tagList tags.List) (upload.Result, error)
}

// Attribute is one entry of the metadata "attributes" array.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     uint32 `json:"value"`
}

// CharacterMetadata is the JSON document a character mint points to.
type CharacterMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Stage names the step of UploadCharacterMetadata that failed.
type Stage string

const (
	StageRender   Stage = "render"
	StageImage    Stage = "image"
	StageMetadata Stage = "metadata"
)

// StageError wraps the first failure of the character pipeline.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("metadata: %s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Orchestrator sequences render, image upload and metadata upload.
type Orchestrator struct {
	uploader Uploader
	renderer Renderer
	log      *zap.Logger
}

// NewOrchestrator returns an Orchestrator. A nil renderer selects SVGRenderer;
// a nil logger discards output.
func NewOrchestrator(u Uploader, r Renderer, log *zap.Logger) *Orchestrator {
	if r == nil {
		r = SVGRenderer{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{uploader: u, renderer: r, log: log}
}

// UploadCharacterMetadata renders the character, uploads the image, embeds
// its URL in a CharacterMetadata document and uploads that. It returns the
// metadata URL.
//
// The first failure aborts the pipeline: if the image upload fails no
// metadata upload is attempted.
func (o *Orchestrator) UploadCharacterMetadata(ctx context.Context, index int, name, description string, hp, atk, def uint32) (string, error) {
	log := o.log.With(zap.Int("index", index), zap.String("name", name))

	img, contentType, err := o.renderer.Render(ctx, Art{Hue: Hue(index), Name: name, HP: hp, ATK: atk, DEF: def})
	if err != nil {
		return "", &StageError{Stage: StageRender, Err: err}
	}

	imgRes, err := o.uploader.Upload(ctx, img, tags.WithContentType(contentType))
	if err != nil {
		log.Warn("image upload failed", zap.Error(err))
		return "", &StageError{Stage: StageImage, Err: err}
	}
	log.Debug("image uploaded", zap.String("url", imgRes.URL))

	doc, err := json.Marshal(CharacterMetadata{
		Name:        name,
		Description: description,
		Image:       imgRes.URL,
		Attributes: []Attribute{
			{TraitType: "HP", Value: hp},
			{TraitType: "ATK", Value: atk},
			{TraitType: "DEF", Value: def},
		},
	})
	if err != nil {
		return "", &StageError{Stage: StageMetadata, Err: err}
	}

	metaRes, err := o.uploader.Upload(ctx, doc, tags.WithContentType(contentTypeJSON))
	if err != nil {
		log.Warn("metadata upload failed", zap.Error(err))
		return "", &StageError{Stage: StageMetadata, Err: err}
	}
	log.Info("character metadata uploaded", zap.String("image", imgRes.URL), zap.String("metadata", metaRes.URL))
	return metaRes.URL, nil
}

// UploadText uploads content once with the given content type and returns
// its URL.
func (o *Orchestrator) UploadText(ctx context.Context, content, contentType string) (string, error) {
	res, err := o.uploader.Upload(ctx, []byte(content), tags.WithContentType(contentType))
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

// UploadTextOrFallback is UploadText that substitutes fallback when the
// upload fails. It is meant for collection-level metadata, where an inline
// data URI is acceptable; character metadata must not use it.
func (o *Orchestrator) UploadTextOrFallback(ctx context.Context, content, contentType, fallback string) (uri string, usedFallback bool) {
	u, err := o.UploadText(ctx, content, contentType)
	if err != nil {
		o.log.Warn("upload failed, using inline fallback", zap.Error(err))
		return fallback, true
	}
	return u, false
}
