package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client used for remote vCard imports.
var UserAgent = "bday/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "bday"
	AppUsage          = "Remember birthdays and see which ones are coming up next."
	KeyringService    = "com.github.tartampluch.bday"
	LocalhostBindAddr = "127.0.0.1"

	// ConfigFileName is the name of the birthday store in every candidate directory.
	ConfigFileName = "bday.toml"
	// HiddenConfigFileName is the dot-file variant looked up in the home directory.
	HiddenConfigFileName = "." + ConfigFileName
	// DotConfigDir is the XDG fallback used when the platform config dir is unknown.
	DotConfigDir = ".config"
	CurrentDir   = "."
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeUsage   = 2
	ExitCodeConfig  = 3
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdAdd    = "add"
	CmdList   = "list"
	CmdImport = "import"
	CmdExport = "export"
	CmdServe  = "serve"

	CmdDescAdd    = "Adds a new entry"
	CmdDescList   = "Lists entries, closest birthday first"
	CmdDescImport = "Imports birthdays from a vCard file or a CardDAV/WebDAV URL"
	CmdDescExport = "Writes all birthdays as an iCalendar file"
	CmdDescServe  = "Serves all birthdays as an iCalendar feed on localhost"

	FlagFile         = "file"
	FlagDebug        = "debug"
	FlagName         = "name"
	FlagDate         = "date"
	FlagTimezone     = "timezone"
	FlagLimit        = "limit"
	FlagPath         = "path"
	FlagURL          = "url"
	FlagUser         = "user"
	FlagPassword     = "password"
	FlagSavePassword = "save-password"
	FlagDryRun       = "dry-run"
	FlagCardDAV      = "carddav"
	FlagOutput       = "output"
	FlagPort         = "port"

	AliasFile     = "f"
	AliasName     = "n"
	AliasDate     = "d"
	AliasTimezone = "t"
	AliasLimit    = "l"
	AliasOutput   = "o"
	AliasPort     = "p"

	FlagDescFile         = "Use this configuration file instead of searching for one"
	FlagDescDebug        = "Enable debug logging to stderr"
	FlagDescName         = "The name associated with the entry"
	FlagDescDate         = "The date associated with the entry (DD/MM, DD/MM/YYYY or YYYY-MM-DD)"
	FlagDescTimezone     = "Optional timezone for the entry (IANA name, e.g. Europe/Paris)"
	FlagDescLimit        = "Display only the closest n entries"
	FlagDescPath         = "Path to a .vcf file"
	FlagDescURL          = "CardDAV or WebDAV URL serving vCards"
	FlagDescUser         = "HTTP Basic Auth username for --url"
	FlagDescPassword     = "HTTP Basic Auth password for --url (read from the keyring when omitted)"
	FlagDescSavePassword = "Store --password in the system keyring for later imports"
	FlagDescDryRun       = "Show what would be imported without writing the configuration file"
	FlagDescCardDAV      = "Treat --url as a CardDAV server and query its address books"
	FlagDescOutput       = "Write the calendar to this file instead of stdout"
	FlagDescPort         = "Port for the local calendar feed"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	SourceModeWeb   = "web"
	SourceModeLocal = "local"

	// DefaultLeapYear is used to validate year-less dates so that 29/02 is accepted.
	DefaultLeapYear = 2000
	DefaultPort     = 18080
	MinPort         = 1
	MaxPort         = 65535

	// FeedRefreshInterval is how often `serve` regenerates the calendar from the store.
	FeedRefreshInterval = 1 * time.Hour

	// EndOfDay wall clock used for previous occurrences.
	EndOfDayHour   = 23
	EndOfDayMinute = 59
	EndOfDaySecond = 59

	// ZoneSearchWindow bounds the instants probed for UTC offsets around a wall time.
	ZoneSearchWindow = 24 * time.Hour
)

// -----------------------------------------------------------------------------
// Date Formats & Display
// -----------------------------------------------------------------------------

const (
	// DateSpec grammar separators.
	SepSlash = "/"
	SepDash  = "-"

	// Canonical DateSpec renderings.
	FormatDayMonth     = "%02d/%02d"
	FormatDayMonthYear = "%02d/%02d/%d"

	// DateFormatDisplay is used by the Date column of `list`.
	DateFormatDisplay = "02 January"

	// Date layouts used for parsing vCard BDAY fields.
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"
)

// -----------------------------------------------------------------------------
// Table Output
// -----------------------------------------------------------------------------

const (
	ColIndex = "#"
	ColName  = "Name"
	ColDate  = "Date"
	ColAge   = "Age"
	ColIn    = "In"

	AgeUnknown    = "?"
	FormatAge     = "%d → %d"
	InToday       = "Today!"
	LabelFuture   = "in"
	LabelPast     = "ago"
	MsgNoEntries  = "No entries found, add some with the 'add' command."
	MsgAddEntry   = "Adding entry: %s, Date: %s"
	MsgAddZone    = ", Timezone: %s"
	MsgImported   = "Imported %d entries (%d skipped)."
	MsgDryRunItem = "Would import: %s, Date: %s\n"

	// MsgPasswordPrompt is written to stderr before reading a password from the terminal.
	MsgPasswordPrompt = "Password for %s: "
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion = "2.0"
	ICalProdid  = "-//bday//Birthdays//EN"
	ICalCalName = "Birthdays"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "bday"

	// iCal/vCard Fields
	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTStamp    = "DTSTAMP"
	PropRefresh    = "REFRESH-INTERVAL"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"

	VCardBDAY = "BDAY"
	VCardFN   = "FN"

	// VCardVersion is set on cards that reach us without a VERSION field.
	VCardVersion = "4.0"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when the store is empty.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	SummaryPlain = "Birthday: %s"
	SummaryAge   = "Birthday: %s (%d)"

	// UID Generation
	UIDSalt         = "bday-v1-"
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 64 * 1024 * 1024 // 64MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages
// -----------------------------------------------------------------------------

const (
	// Error kinds, used as the one-line prefix printed by the driver.
	ErrKindUsage    = "usage error"
	ErrKindTimezone = "unknown timezone"
	ErrKindIO       = "config io error"
	ErrKindParse    = "config parse error"
	ErrKindImport   = "import error"
	ErrKindExport   = "export error"
	ErrKindServe    = "serve error"
	ErrKindOutput   = "output error"

	// HintUsage follows every usage error.
	HintUsage = "run 'bday --help' for usage"

	ErrInvalidFormat   = "invalid date format (expected DD/MM, DD/MM/YYYY or YYYY-MM-DD)"
	ErrInvalidDate     = "not a valid calendar date"
	ErrUnknownTimezone = "unknown timezone"
	ErrConfigNotFound  = "no configuration file found"
	ErrConfigRead      = "failed to read configuration file"
	ErrConfigWrite     = "failed to write configuration file"
	ErrConfigParse     = "failed to parse configuration file"
	ErrConfigEncode    = "failed to encode configuration"
	HintDeleteConfig   = "you can delete the file, it will be re-created the next time you add a birthday"
	ErrEntryName       = "entry name must not be empty"
	ErrEntryDate       = "entry date is invalid"
	ErrLimitRange      = "--limit must be at least 1"
	ErrPortRange       = "--port must be between 1 and 65535"
	ErrImportSource    = "exactly one of --path or --url is required"
	ErrUnknownCommand  = "unknown command"
	ErrMissingCommand  = "a command is required"

	ErrLocalPathEmpty = "configuration error: local path is empty"
	ErrWebURLEmpty    = "configuration error: web URL is empty"
	ErrFetcherMissing = "internal error: network fetcher is not initialized"
	ErrInvalidURL     = "invalid URL structure"
	ErrProtocol       = "unsupported protocol scheme (http/https only)"
	ErrVCardParse     = "failed to parse vCard stream"
	ErrCardDAV        = "CardDAV request failed"
	ErrNoAddressBook  = "no address book found on the CardDAV server"
	ErrPasswordPrompt = "failed to read password"
	ErrICalEncode     = "failed to encode iCalendar data"
	ErrDateParse      = "unable to parse date"
	ErrKeyring        = "failed to access the system keyring"
	ErrServerStartup  = "server startup failed"
	ErrServerShutdown = "server shutdown failed"
	ErrWriteResp      = "failed to write response body"
	ErrWriteOutput    = "failed to write output"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgConfigLoaded   = "Configuration loaded"
	MsgConfigMissing  = "No configuration file found, using default path"
	MsgConfigSaved    = "Configuration saved"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedDate    = "Skipping invalid date format"
	MsgSkippedNoName  = "Skipping vCard without a name"
	MsgSkippedDup     = "Skipping entry already present"
	MsgImportDone     = "Import finished"
	MsgExportDone     = "Calendar generation successful"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Calendar cache updated"
	MsgFeedRefresh    = "Refreshing calendar feed"
	MsgFeedFailed     = "Calendar feed refresh failed"
	MsgZoneIndex      = "Zone index built"
	MsgZoneSource     = "Zone source unavailable"
	MsgZoneGap        = "Wall time falls in a DST gap"
	MsgKeyringMiss    = "Password retrieval failed (might be empty)"
	MsgKeyringSaved   = "Password stored in keyring"
	MsgAddressBooks   = "Address books discovered"
	MsgCommandStarted = "Command started"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyPort      = "port"
	LogKeyCommand   = "command"
	LogKeyCount     = "count"
	LogKeySkipped   = "skipped"
	LogKeyName      = "name"
	LogKeyValue     = "value"
	LogKeyZone      = "zone"
	LogKeyWall      = "wall"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyUser      = "user"
	LogKeyVersion   = "version"
	LogKeyMode      = "mode"
	LogKeyDuration  = "duration_ms"
	LogKeyProcessed = "processed"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompStore    = "store"
	CompEngine   = "engine"
	CompZone     = "zone"
	CompImporter = "importer"
	CompExporter = "exporter"
	CompFetcher  = "fetcher"
	CompServer   = "server"
)
