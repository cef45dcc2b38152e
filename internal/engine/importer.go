package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/bday/internal/config"
	"github.com/tartampluch/bday/internal/datespec"
)

// ImportSource describes where vCards are read from.
type ImportSource struct {
	Mode      string // config.SourceModeLocal or config.SourceModeWeb
	LocalPath string // Path to the .vcf file
	WebURL    string // CardDAV or WebDAV URL
	WebUser   string // HTTP Basic Auth Username
	WebPass   string // HTTP Basic Auth Password
}

// ImportResult is the outcome of reading a vCard stream.
type ImportResult struct {
	// Entries are the birthdays found, in stream order.
	Entries []StoredEntry
	// Processed counts decoded cards, including those without a birthday.
	Processed int
	// Skipped counts malformed cards and cards with an unusable name or date.
	Skipped int
}

// Importer turns vCard address books into stored birthday entries.
type Importer struct {
	Fetcher VCardFetcher // Interface for network abstraction.
}

// Import reads every card from the source and keeps those carrying a birthday.
func (im *Importer) Import(ctx context.Context, src ImportSource) (ImportResult, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompImporter,
		config.LogKeyMode, src.Mode,
	)

	reader, err := im.acquireStream(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return ImportResult{}, ctx.Err()
		}
		return ImportResult{}, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
	}
	defer func() { _ = reader.Close() }()

	if err := ctx.Err(); err != nil {
		return ImportResult{}, err
	}

	res, err := im.decode(ctx, reader)
	if err == nil {
		log.Debug(config.MsgImportDone,
			config.LogKeyProcessed, res.Processed,
			config.LogKeyCount, len(res.Entries),
			config.LogKeySkipped, res.Skipped,
			config.LogKeyDuration, time.Since(start).Milliseconds())
	}
	return res, err
}

// acquireStream opens the appropriate data source.
func (im *Importer) acquireStream(ctx context.Context, src ImportSource) (io.ReadCloser, error) {
	switch src.Mode {
	case config.SourceModeLocal:
		if src.LocalPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return os.Open(src.LocalPath)
	case config.SourceModeWeb:
		if src.WebURL == "" {
			return nil, errors.New(config.ErrWebURLEmpty)
		}
		if im.Fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		return im.Fetcher.Fetch(ctx, src.WebURL, src.WebUser, src.WebPass)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrImportSource, src.Mode)
	}
}

// decode walks the vCard stream. Cards with an unusable birthday or name are
// counted as skipped; a syntax error ends the stream.
func (im *Importer) decode(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult
	decoder := vcard.NewDecoder(r)

	for {
		if ctx.Err() != nil {
			return ImportResult{}, ctx.Err()
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A syntax error leaves the decoder at an unknown position; stop here.
			slog.Warn(config.MsgSkippedCard,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyError, err)
			res.Skipped++
			break
		}

		res.Processed++
		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}

		date, err := parseVCardDate(bday.Value)
		if err != nil {
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyValue, bday.Value)
			res.Skipped++
			continue
		}

		// Name Strategy: FN (Formatted) > N (Structured)
		name := ""
		if fn := card.Get(config.VCardFN); fn != nil {
			name = fn.Value
		}
		if strings.TrimSpace(name) == "" {
			if n := card.Name(); n != nil {
				name = strings.TrimSpace(strings.Join([]string{n.GivenName, n.FamilyName}, " "))
			}
		}

		entry, err := NewStoredEntry(name, date, "")
		if err != nil {
			slog.Debug(config.MsgSkippedNoName,
				config.LogKeyComponent, config.CompImporter,
				config.LogKeyValue, bday.Value)
			res.Skipped++
			continue
		}
		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}

// parseVCardDate handles the BDAY formats met in the wild.
func parseVCardDate(value string) (datespec.DateSpec, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return datespec.NewWithYear(t.Day(), t.Month(), t.Year())
		}
	}

	// Truncated dates (year unknown), read by hand so no year sneaks in.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if len(value) != len(f) || !strings.HasPrefix(value, "--") {
			continue
		}
		digits := strings.ReplaceAll(value[2:], "-", "")
		if len(digits) != 4 {
			continue
		}
		month, errMonth := strconv.Atoi(digits[:2])
		day, errDay := strconv.Atoi(digits[2:])
		if errMonth != nil || errDay != nil || strings.ContainsAny(digits, "+-") {
			continue
		}
		return datespec.New(day, time.Month(month))
	}

	return datespec.DateSpec{}, errors.New(config.ErrDateParse)
}
