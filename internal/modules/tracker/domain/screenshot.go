package domain

import "encoding/base64"

// Screenshot is one captured frame of the game screen.
type Screenshot struct {
	Data []byte
	MIME string
}

// DataURI encodes the frame the way the vision flow expects its image input.
func (s Screenshot) DataURI() string {
	mime := s.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

func (s Screenshot) Empty() bool { return len(s.Data) == 0 }
