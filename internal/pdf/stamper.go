package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

const MimeTypePDF = "application/pdf"

type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
)

func NormalizePosition(p string) Position {
	switch Position(p) {
	case PositionBottomLeft, PositionTopLeft, PositionTopRight:
		return Position(p)
	default:
		return PositionBottomRight
	}
}

// Result carries the stamped bytes. Applied is false when the artifact type
// is not page-addressable and the content is an untouched copy; callers must
// surface that no visual label exists on such artifacts.
type Result struct {
	Content []byte
	Applied bool
}

// Stamper is the page-stamping capability. Implementations never mutate the
// input slice; the original artifact stays intact for auditing and relabeling.
type Stamper interface {
	// StampText draws text on every page at the given corner, sized off each
	// page's own dimensions.
	StampText(ctx context.Context, content []byte, mimeType, text string, pos Position) (Result, error)
	// StampBadge draws a bordered sticker with the text in the top-right
	// corner of the first page only.
	StampBadge(ctx context.Context, content []byte, mimeType, text string) (Result, error)
	// StampWatermark draws large diagonal low-opacity text on every page.
	StampWatermark(ctx context.Context, content []byte, mimeType, text string) (Result, error)
}

type stamper struct {
	log *logger.Logger
}

func NewStamper(baseLog *logger.Logger) Stamper {
	return &stamper{log: baseLog.With("service", "Stamper")}
}

func positionDesc(pos Position) string {
	switch pos {
	case PositionBottomLeft:
		return "pos:bl, off:20 20"
	case PositionTopLeft:
		return "pos:tl, off:20 -20"
	case PositionTopRight:
		return "pos:tr, off:-20 -20"
	default:
		return "pos:br, off:-20 20"
	}
}

func (s *stamper) StampText(ctx context.Context, content []byte, mimeType, text string, pos Position) (Result, error) {
	if mimeType != MimeTypePDF {
		return passThrough(content), nil
	}
	desc := fmt.Sprintf("fontname:Helvetica, points:12, scale:1 abs, rot:0, fillcol:#000000, %s", positionDesc(pos))
	out, err := s.stamp(ctx, content, text, desc, nil, true)
	if err != nil {
		return Result{}, err
	}
	return Result{Content: out, Applied: true}, nil
}

func (s *stamper) StampBadge(ctx context.Context, content []byte, mimeType, text string) (Result, error) {
	if mimeType != MimeTypePDF {
		return passThrough(content), nil
	}
	desc := "fontname:Helvetica, points:14, scale:1 abs, rot:0, pos:tr, off:-20 -20, fillcol:#000000, bgcol:#FFFFFF, border:1 #000000, margins:6"
	out, err := s.stamp(ctx, content, text, desc, []string{"1"}, true)
	if err != nil {
		return Result{}, err
	}
	return Result{Content: out, Applied: true}, nil
}

func (s *stamper) StampWatermark(ctx context.Context, content []byte, mimeType, text string) (Result, error) {
	if mimeType != MimeTypePDF {
		return passThrough(content), nil
	}
	desc := "fontname:Helvetica, scale:0.9, rot:45, op:0.3, fillcol:#CCCCCC, pos:c"
	out, err := s.stamp(ctx, content, text, desc, nil, false)
	if err != nil {
		return Result{}, err
	}
	return Result{Content: out, Applied: true}, nil
}

func (s *stamper) stamp(ctx context.Context, content []byte, text, desc string, pages []string, onTop bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wm, err := api.TextWatermark(text, desc, onTop, false, pdftypes.POINTS)
	if err != nil {
		return nil, apierr.Render("stamp_configuration", err)
	}
	var buf bytes.Buffer
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.AddWatermarks(bytes.NewReader(content), &buf, pages, wm, conf); err != nil {
		return nil, apierr.Render("stamp_failed", err)
	}
	return buf.Bytes(), nil
}

func passThrough(content []byte) Result {
	out := make([]byte, len(content))
	copy(out, content)
	return Result{Content: out, Applied: false}
}
