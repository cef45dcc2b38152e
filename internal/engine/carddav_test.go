package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/bday/internal/config"
)

func TestEncodeCards_FeedsImporter(t *testing.T) {
	withVersion := vcard.Card{}
	withVersion.SetValue(vcard.FieldVersion, "3.0")
	withVersion.SetValue(vcard.FieldFormattedName, "John Doe")
	withVersion.SetValue(vcard.FieldBirthday, "1990-10-25")

	// Some servers drop VERSION from address-data.
	bare := vcard.Card{}
	bare.SetValue(vcard.FieldFormattedName, "Ada Lovelace")
	bare.SetValue(vcard.FieldBirthday, "--12-10")

	rc, err := encodeCards([]vcard.Card{withVersion, bare})
	require.NoError(t, err)

	res, err := (&Importer{}).decode(context.Background(), rc)
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "John Doe", res.Entries[0].Name)
	assert.Equal(t, "25/10/1990", res.Entries[0].Date.String())
	assert.Equal(t, "Ada Lovelace", res.Entries[1].Name)
	assert.Equal(t, "10/12", res.Entries[1].Date.String())
}

func TestEncodeCards_Empty(t *testing.T) {
	rc, err := encodeCards(nil)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCardDAVFetcher_ServerFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "carol", user)
		assert.Equal(t, "s3cret", pass)
		assert.Equal(t, config.UserAgent, r.Header.Get(config.HeaderUserAgent))
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewCardDAVFetcher().Fetch(context.Background(), ts.URL+"/dav/", "carol", "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrCardDAV)
}

func TestCardDAVFetcher_RejectsBadURLs(t *testing.T) {
	for _, u := range []string{"ftp://example.com/book", "file:///etc/passwd", "://broken"} {
		_, err := NewCardDAVFetcher().Fetch(context.Background(), u, "", "")
		require.Error(t, err, u)
		assert.True(t,
			strings.Contains(err.Error(), config.ErrProtocol) || strings.Contains(err.Error(), config.ErrInvalidURL),
			err.Error())
	}
}
