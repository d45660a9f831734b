package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// priceCandidate matches board prices such as 2.89 or 3,149.
var priceCandidate = regexp.MustCompile(`\d[.,]\d{2,3}`)

// TextExtractor turns an image into raw text.
type TextExtractor interface {
	ExtractText(ctx context.Context, filename string, image io.Reader) (string, error)
}

// UploadStore keeps the original photo and returns its public name.
type UploadStore interface {
	Save(ctx context.Context, originalName string, data []byte) (string, error)
}

// OCRService reads a price-board photo and proposes prices for a station.
// It never writes to the ledger; the client confirms and submits a batch.
type OCRService interface {
	Suggest(ctx context.Context, stationID uint, filename string, image io.Reader) (*dto.OCRSuggestion, error)
}

type ocrService struct {
	stations  repository.StationRepository
	extractor TextExtractor
	uploads   UploadStore
}

func NewOCRService(stations repository.StationRepository, extractor TextExtractor, uploads UploadStore) OCRService {
	return &ocrService{stations: stations, extractor: extractor, uploads: uploads}
}

func (s *ocrService) Suggest(ctx context.Context, stationID uint, filename string, image io.Reader) (*dto.OCRSuggestion, error) {
	st, err := s.stations.FindByID(ctx, stationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("station %d not found", stationID)
		}
		return nil, err
	}

	data, err := io.ReadAll(image)
	if err != nil {
		return nil, invalid("cannot read upload")
	}
	if len(data) == 0 {
		return nil, invalid("empty upload")
	}

	out := &dto.OCRSuggestion{
		StationID: st.ID,
		Suggested: map[string]string{},
		Order:     make([]string, len(st.FuelConfig)),
	}
	for i, f := range st.FuelConfig {
		out.Order[i] = f.ID
	}

	if s.uploads != nil {
		name, err := s.uploads.Save(ctx, filename, data)
		if err != nil {
			log.Warn().Err(err).Uint("station_id", stationID).Msg("ocr: could not keep upload")
		} else {
			out.Upload = name
		}
	}

	if s.extractor == nil {
		return nil, newError(ErrUnavailable, "ocr is not configured")
	}
	text, err := s.extractor.ExtractText(ctx, filename, bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Uint("station_id", stationID).Msg("ocr: extraction failed")
		return nil, newError(ErrUnavailable, "ocr service unavailable")
	}

	out.Candidates = ExtractCandidates(text)
	for i, id := range out.Order {
		out.Suggested[id] = ""
		if i < len(out.Candidates) {
			out.Suggested[id] = out.Candidates[i]
		}
	}
	return out, nil
}

// ExtractCandidates returns the distinct price-looking tokens of text in
// reading order, with comma decimals normalized to a dot.
func ExtractCandidates(text string) []string {
	matches := priceCandidate.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		m = strings.ReplaceAll(m, ",", ".")
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
