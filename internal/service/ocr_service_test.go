package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/fuelconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	text string
	err  error
	got  string
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ string, image io.Reader) (string, error) {
	b, _ := io.ReadAll(image)
	f.got = string(b)
	return f.text, f.err
}

type fakeUploads struct{ saved map[string][]byte }

func (u *fakeUploads) Save(_ context.Context, name string, data []byte) (string, error) {
	if u.saved == nil {
		u.saved = map[string][]byte{}
	}
	u.saved[name] = data
	return "upload_1.jpg", nil
}

func TestExtractCandidates(t *testing.T) {
	text := "NANO 95  3,15\nNANO 92 2.99\nDIESEL 3,15\nLPG 1.850 tel 599123456"
	assert.Equal(t, []string{"3.15", "2.99", "1.850"}, ExtractCandidates(text))
	assert.Empty(t, ExtractCandidates("no prices here"))
}

func TestSuggest_MapsCandidatesOntoFuelOrder(t *testing.T) {
	stations := newStubStationRepo()
	catalog := NewCatalogService(stations, fuelconfig.Builtin(), nil, &recordingSink{})
	st, err := catalog.CreateStation(context.Background(), dto.CreateStationRequest{
		Name: "Socar", Brand: ptr("SOCAR"), Lat: ptr(41.0), Lng: ptr(44.0),
	}, nil)
	require.NoError(t, err)

	ext := &fakeExtractor{text: "3.15 2.99"}
	uploads := &fakeUploads{}
	svc := NewOCRService(stations, ext, uploads)

	sug, err := svc.Suggest(context.Background(), st.ID, "board.jpg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)

	assert.Equal(t, "jpegbytes", ext.got)
	assert.Equal(t, []byte("jpegbytes"), uploads.saved["board.jpg"])
	assert.Equal(t, "upload_1.jpg", sug.Upload)
	assert.Equal(t, []string{"n95", "n92", "diesel", "lpg"}, sug.Order)
	assert.Equal(t, map[string]string{"n95": "3.15", "n92": "2.99", "diesel": "", "lpg": ""}, sug.Suggested)
}

func TestSuggest_Errors(t *testing.T) {
	stations := newStubStationRepo()
	catalog := NewCatalogService(stations, nil, nil, &recordingSink{})
	st, err := catalog.CreateStation(context.Background(), dto.CreateStationRequest{Lat: ptr(41.0), Lng: ptr(44.0)}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	svc := NewOCRService(stations, &fakeExtractor{err: errors.New("breaker open")}, nil)
	_, err = svc.Suggest(ctx, st.ID, "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = svc.Suggest(ctx, 77, "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Suggest(ctx, st.ID, "a.jpg", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrValidation)
}
