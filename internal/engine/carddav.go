package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/emersion/go-webdav/carddav"
	"github.com/tartampluch/bday/internal/config"
)

// CardDAVFetcher implements VCardFetcher against a CardDAV server. The URL may name
// an address book or any collection of the account; in the latter case the address
// books are discovered from the current user principal.
type CardDAVFetcher struct {
	Timeout time.Duration
}

// NewCardDAVFetcher creates a fetcher whose requests time out after config.HTTPTimeout.
func NewCardDAVFetcher() *CardDAVFetcher {
	return &CardDAVFetcher{Timeout: config.HTTPTimeout}
}

// Fetch queries every address book reachable from endpoint and returns all cards as
// a single vCard stream.
func (f *CardDAVFetcher) Fetch(ctx context.Context, endpoint, user, pass string) (io.ReadCloser, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{username: user, password: pass},
		Timeout:   f.Timeout,
	}
	client, err := carddav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCardDAV, err)
	}

	books, err := addressBooks(ctx, client, u.Path)
	if err != nil {
		return nil, err
	}
	slog.Debug(config.MsgAddressBooks,
		config.LogKeyComponent, config.CompFetcher,
		config.LogKeyURL, redact(u),
		config.LogKeyCount, len(books))

	query := &carddav.AddressBookQuery{
		DataRequest: carddav.AddressDataRequest{AllProp: true},
	}
	var cards []vcard.Card
	for _, book := range books {
		objects, err := client.QueryAddressBook(ctx, book, query)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", config.ErrCardDAV, book, err)
		}
		for _, obj := range objects {
			cards = append(cards, obj.Card)
		}
	}
	return encodeCards(cards)
}

// addressBooks returns the address book paths under path, falling back to the
// home set of the current user.
func addressBooks(ctx context.Context, client *carddav.Client, path string) ([]string, error) {
	if found, err := client.FindAddressBooks(ctx, path); err == nil && len(found) > 0 {
		return bookPaths(found), nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCardDAV, err)
	}
	home, err := client.FindAddressBookHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCardDAV, err)
	}
	found, err := client.FindAddressBooks(ctx, home)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCardDAV, err)
	}
	if len(found) == 0 {
		return nil, errors.New(config.ErrNoAddressBook)
	}
	return bookPaths(found), nil
}

func bookPaths(books []carddav.AddressBook) []string {
	paths := make([]string, 0, len(books))
	for _, b := range books {
		paths = append(paths, b.Path)
	}
	return paths
}

// encodeCards serialises cards into one stream the Importer can decode.
// Servers may omit VERSION; the encoder requires it.
func encodeCards(cards []vcard.Card) (io.ReadCloser, error) {
	var buf bytes.Buffer
	enc := vcard.NewEncoder(&buf)
	for _, card := range cards {
		if card.Get(vcard.FieldVersion) == nil {
			card.SetValue(vcard.FieldVersion, config.VCardVersion)
		}
		if err := enc.Encode(card); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
		}
	}
	return io.NopCloser(&buf), nil
}

// basicAuthTransport adds Basic Auth and the User-Agent to every request.
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if t.username != "" || t.password != "" {
		req.SetBasicAuth(t.username, t.password)
	}
	return http.DefaultTransport.RoundTrip(req)
}
