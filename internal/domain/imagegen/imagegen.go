// Package imagegen declares the hosted model capabilities the orchestrators depend on.
package imagegen

import "context"

// ImageRequest asks the image model for a new or edited image.
type ImageRequest struct {
	Prompt string
	// Images are data URLs or https URLs sent as input images, in order.
	Images []string
	// PreviousResponseID anchors the call to an earlier response.
	PreviousResponseID string
	// ImageCallID references the image generation call to edit.
	ImageCallID string
}

// ImageResult carries the generated bytes and the ids needed to continue from them.
type ImageResult struct {
	ResponseID  string
	ImageCallID string
	Data        []byte
}

// ImageGenerator creates images and text continuations on a stateful response chain.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
	// ContinueText asks a text-only follow up on previousResponseID.
	ContinueText(ctx context.Context, previousResponseID, prompt string) (string, error)
}

// Describer produces text about an image.
type Describer interface {
	Describe(ctx context.Context, imageURL, instruction string) (string, error)
}

// Rewriter runs a single system+user text completion.
type Rewriter interface {
	Rewrite(ctx context.Context, system, user string) (string, error)
}

// StylizeRequest asks an image-to-image model to restyle imageURL.
type StylizeRequest struct {
	ImageURL string
	Prompt   string
}

// StylizeResult is the finished job and the URL of its first output image.
type StylizeResult struct {
	RequestID string
	ImageURL  string
}

// Stylizer runs a queued image-to-image job to completion.
type Stylizer interface {
	Stylize(ctx context.Context, req StylizeRequest) (*StylizeResult, error)
}
