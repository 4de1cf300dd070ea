package dto

type SongURLResponse struct {
	URL string `json:"url"`
}

type QRResponse struct {
	QRURL     string `json:"qrUrl"`
	RemoteURL string `json:"remoteUrl"`
}
