package recognize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/disintegration/imaging"

	"github.com/vincentdare/auto-extractor/config"
	"github.com/vincentdare/auto-extractor/pkg/logger"
)

// TextractEngine reads pages with AWS Textract. It is the cloud alternative
// for hosts without a Tesseract install; the page bitmap is uploaded per call.
type TextractEngine struct {
	client *textract.Client
	logger logger.Logger
	cfg    config.OCRSettings
}

func NewTextractEngine(ctx context.Context, cfg config.OCRSettings, app *config.AppConfig, log logger.Logger) (*TextractEngine, error) {
	creds := credentials.NewStaticCredentialsProvider(app.AWSAccessKey, app.AWSSecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(app.AWSRegion),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &TextractEngine{
		client: textract.NewFromConfig(awsCfg),
		logger: log.Named("textract"),
		cfg:    cfg,
	}, nil
}

func (e *TextractEngine) PageText(ctx context.Context, imagePath string) (string, error) {
	blocks, _, err := e.detect(ctx, imagePath)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, block := range blocks {
		if block.BlockType == types.BlockTypeLine && block.Text != nil {
			lines = append(lines, *block.Text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (e *TextractEngine) PageFragments(ctx context.Context, imagePath string) ([]Fragment, error) {
	blocks, bounds, err := e.detect(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	// Textract geometry is in page-relative ratios; scale back to pixels so
	// row grouping works in the same units as the local engine.
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	var frags []Fragment
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeWord || block.Text == nil || block.Geometry == nil || block.Geometry.BoundingBox == nil {
			continue
		}
		bb := block.Geometry.BoundingBox
		x0 := int(float64(bb.Left) * w)
		y0 := int(float64(bb.Top) * h)
		frag := Fragment{
			Text: *block.Text,
			Box:  image.Rect(x0, y0, x0+int(float64(bb.Width)*w), y0+int(float64(bb.Height)*h)),
		}
		if block.Confidence != nil {
			frag.Confidence = float64(*block.Confidence)
		}
		frags = append(frags, frag)
	}
	return frags, nil
}

// ReadRegion crops locally and uploads only the crop.
func (e *TextractEngine) ReadRegion(ctx context.Context, imagePath string, region image.Rectangle) (string, error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open page image: %w", err)
	}
	crop := imaging.Crop(img, region)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, crop); err != nil {
		return "", fmt.Errorf("failed to encode region crop: %w", err)
	}

	result, err := e.detectBytes(ctx, buf.Bytes())
	if err != nil {
		return "", err
	}
	var words []string
	for _, block := range result {
		if block.BlockType == types.BlockTypeLine && block.Text != nil {
			words = append(words, *block.Text)
		}
	}
	return strings.Join(words, " "), nil
}

func (e *TextractEngine) Close() error { return nil }

func (e *TextractEngine) detect(ctx context.Context, imagePath string) ([]types.Block, image.Rectangle, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to read page image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to decode page image: %w", err)
	}

	blocks, err := e.detectBytes(ctx, data)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	return blocks, image.Rect(0, 0, cfg.Width, cfg.Height), nil
}

func (e *TextractEngine) detectBytes(ctx context.Context, data []byte) ([]types.Block, error) {
	if e.cfg.PageTimeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.PageTimeout())
		defer cancel()
	}

	result, err := e.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: data},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect document text: %w", err)
	}
	return result.Blocks, nil
}
