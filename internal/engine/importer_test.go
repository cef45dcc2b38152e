package engine_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/engine"
)

// MockFetcher simulates the network layer using testify/mock.
type MockFetcher struct {
	mock.Mock
}

// Fetch implements the engine.VCardFetcher interface.
func (m *MockFetcher) Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error) {
	args := m.Called(ctx, url, user, pass)
	if r := args.Get(0); r != nil {
		return r.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

const addressBook = `BEGIN:VCARD
VERSION:4.0
FN:John Doe
BDAY:1990-10-25
END:VCARD
BEGIN:VCARD
VERSION:3.0
N:Lovelace;Ada;;;
BDAY:--12-10
END:VCARD
BEGIN:VCARD
VERSION:3.0
FN:Leap Baby
BDAY:--0229
END:VCARD
BEGIN:VCARD
VERSION:3.0
FN:No Birthday
END:VCARD
BEGIN:VCARD
VERSION:3.0
FN:Garbage
BDAY:not-a-date
END:VCARD
`

func TestImporter_Local(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.vcf")
	require.NoError(t, os.WriteFile(path, []byte(addressBook), 0o600))

	im := &engine.Importer{}
	res, err := im.Import(context.Background(), engine.ImportSource{
		Mode:      config.SourceModeLocal,
		LocalPath: path,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 1, res.Skipped, "only the garbage date is skipped; a card without BDAY is ignored")
	require.Len(t, res.Entries, 3)

	assert.Equal(t, "John Doe", res.Entries[0].Name)
	assert.Equal(t, "25/10/1990", res.Entries[0].Date.String())

	assert.Equal(t, "Ada Lovelace", res.Entries[1].Name, "N is used when FN is missing")
	assert.Equal(t, "10/12", res.Entries[1].Date.String())

	assert.Equal(t, "29/02", res.Entries[2].Date.String())
	assert.Empty(t, res.Entries[2].Timezone)
}

func TestImporter_Web(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "https://dav.example.com/book", "carol", "pw").
		Return(io.NopCloser(strings.NewReader(addressBook)), nil)

	im := &engine.Importer{Fetcher: fetcher}
	res, err := im.Import(context.Background(), engine.ImportSource{
		Mode:    config.SourceModeWeb,
		WebURL:  "https://dav.example.com/book",
		WebUser: "carol",
		WebPass: "pw",
	})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 3)
	fetcher.AssertExpectations(t)
}

func TestImporter_Web_NetworkError(t *testing.T) {
	fetcher := new(MockFetcher)
	expected := errors.New("network unreachable")
	fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, expected)

	im := &engine.Importer{Fetcher: fetcher}
	res, err := im.Import(context.Background(), engine.ImportSource{Mode: config.SourceModeWeb, WebURL: "http://bad"})

	require.Error(t, err)
	assert.ErrorIs(t, err, expected)
	assert.Contains(t, err.Error(), config.ErrVCardParse)
	assert.Empty(t, res.Entries)
}

func TestImporter_SourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		im      *engine.Importer
		src     engine.ImportSource
		wantErr string
	}{
		{"Empty local path", &engine.Importer{}, engine.ImportSource{Mode: config.SourceModeLocal}, config.ErrLocalPathEmpty},
		{"Empty URL", &engine.Importer{}, engine.ImportSource{Mode: config.SourceModeWeb}, config.ErrWebURLEmpty},
		{"Missing fetcher", &engine.Importer{}, engine.ImportSource{Mode: config.SourceModeWeb, WebURL: "http://x"}, config.ErrFetcherMissing},
		{"Unknown mode", &engine.Importer{}, engine.ImportSource{Mode: "carrier-pigeon"}, config.ErrImportSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.im.Import(context.Background(), tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestImporter_ContextCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.vcf")
	require.NoError(t, os.WriteFile(path, []byte(addressBook), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&engine.Importer{}).Import(ctx, engine.ImportSource{Mode: config.SourceModeLocal, LocalPath: path})
	assert.Equal(t, context.Canceled, err)
}

func TestImporter_DateFormats(t *testing.T) {
	tests := []struct {
		name      string
		bdayValue string
		want      string
	}{
		{"ISO8601 Standard", "1990-10-25", "25/10/1990"},
		{"Basic Format", "19901025", "25/10/1990"},
		{"RFC3339", "1990-10-25T00:00:00Z", "25/10/1990"},
		{"Truncated (Month-Day)", "--10-25", "25/10"},
		{"Truncated Basic", "--1025", "25/10"},
		{"Garbage Data", "not-a-date", ""},
		{"Impossible truncated date", "--02-30", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "BEGIN:VCARD\nVERSION:3.0\nFN:Test\nBDAY:" + tt.bdayValue + "\nEND:VCARD\n"
			fetcher := new(MockFetcher)
			fetcher.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(io.NopCloser(strings.NewReader(content)), nil)

			res, err := (&engine.Importer{Fetcher: fetcher}).Import(context.Background(),
				engine.ImportSource{Mode: config.SourceModeWeb, WebURL: "http://x"})
			require.NoError(t, err)

			if tt.want == "" {
				assert.Empty(t, res.Entries)
				assert.Equal(t, 1, res.Skipped)
				return
			}
			require.Len(t, res.Entries, 1)
			assert.Equal(t, tt.want, res.Entries[0].Date.String())
		})
	}
}
