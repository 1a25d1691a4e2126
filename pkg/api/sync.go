package api

// CompareRequest carries every fingerprint known to the client, grouped by
// entity kind. The server answers with the fingerprints the client is missing.
type CompareRequest struct {
	SongFingerprints     []string `json:"songFingerprints"`
	AlbumFingerprints    []string `json:"albumFingerprints"`
	ArtistFingerprints   []string `json:"artistFingerprints"`
	PlaylistFingerprints []string `json:"playlistFingerprints"`
}

// CompareTotals содержит количество недостающих записей по каждому виду.
// Клиент использует их для preflight-оценки места и знаменателей прогресса.
type CompareTotals struct {
	Songs     int `json:"songs"`
	Albums    int `json:"albums"`
	Artists   int `json:"artists"`
	Playlists int `json:"playlists"`
}

// CompareResponse lists fingerprints present on the server but absent on the
// client, plus per-kind totals.
type CompareResponse struct {
	MissingSongs     []string      `json:"missingSongs"`
	MissingAlbums    []string      `json:"missingAlbums"`
	MissingArtists   []string      `json:"missingArtists"`
	MissingPlaylists []string      `json:"missingPlaylists"`
	Totals           CompareTotals `json:"totals"`
}

// BatchRequest asks for full metadata of the listed fingerprints. The
// artist/album/playlist lists are only populated on the first batch; song
// fingerprints are sliced per batch.
type BatchRequest struct {
	SongFingerprints     []string `json:"songFingerprints"`
	AlbumFingerprints    []string `json:"albumFingerprints"`
	ArtistFingerprints   []string `json:"artistFingerprints"`
	PlaylistFingerprints []string `json:"playlistFingerprints"`
	BatchIndex           int      `json:"batchIndex"`
}

// BatchResponse carries the hydrated records for one batch.
type BatchResponse struct {
	Songs     []SongData     `json:"songs"`
	Albums    []AlbumData    `json:"albums"`
	Artists   []ArtistData   `json:"artists"`
	Playlists []PlaylistData `json:"playlists"`
}

// ArtistOrder ссылается на артиста по fingerprint вместе с его позицией
// внутри связи с песней или альбомом.
type ArtistOrder struct {
	Fingerprint string `json:"fingerprint"`
	ArtistOrder int    `json:"artistOrder"`
}

// ArtistData is the wire form of an artist.
type ArtistData struct {
	Fingerprint  string `json:"fingerprint"`
	Name         string `json:"name"`
	IsFavorite   bool   `json:"isFavorite"`
	HasThumbnail bool   `json:"hasThumbnail"`
}

// AlbumData is the wire form of an album. ArtistFingerprints is ordered.
type AlbumData struct {
	Fingerprint        string        `json:"fingerprint"`
	Name               string        `json:"name"`
	AlbumType          string        `json:"albumType"`
	ReleaseYear        *int          `json:"releaseYear"`
	IsFavorite         bool          `json:"isFavorite"`
	HasThumbnail       bool          `json:"hasThumbnail"`
	ArtistFingerprints []ArtistOrder `json:"artistFingerprints"`
}

// SongData is the wire form of a song. Lyrics is a serialized JSON list of
// cue objects; an empty string means no lyrics.
type SongData struct {
	Fingerprint          string        `json:"fingerprint"`
	Name                 string        `json:"name"`
	Duration             int64         `json:"duration"`
	ReleaseYear          *int          `json:"releaseYear"`
	IsFavorite           bool          `json:"isFavorite"`
	Lyrics               string        `json:"lyrics"`
	HasThumbnail         bool          `json:"hasThumbnail"`
	AlbumFingerprint     string        `json:"albumFingerprint"`
	ArtistFingerprints   []ArtistOrder `json:"artistFingerprints"`
	PlaylistFingerprints []string      `json:"playlistFingerprints"`
}

// PlaylistData is the wire form of a playlist. Songs link themselves to
// playlists on the song side, so only the name and flags are carried here.
type PlaylistData struct {
	Fingerprint      string   `json:"fingerprint"`
	Name             string   `json:"name"`
	IsFavorite       bool     `json:"isFavorite"`
	SongFingerprints []string `json:"songFingerprints"`
}

// PingResponse is returned by GET /ping.
type PingResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ConnectionInfo describes the running server, returned by GET /connection.
type ConnectionInfo struct {
	IP        string   `json:"ip"`
	Port      int      `json:"port"`
	URL       string   `json:"url"`
	Status    string   `json:"status"`
	Endpoints []string `json:"endpoints"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}
