package robt

import (
	json "github.com/goccy/go-json"
)

// Stats is the disk index's trailer metadata: build-time configuration plus
// the counters and root pointer a Reader needs to open the index without
// rescanning it. Serialized with goccy/go-json for faster (de)serialization
// on the build/open hot path.
type Stats struct {
	Name string `json:"name"`

	ZBlockSize int `json:"z_blocksize"`
	MBlockSize int `json:"m_blocksize"`
	VBlockSize int `json:"v_blocksize"`

	DeltaOk     bool   `json:"delta_ok"`
	ValueInVlog bool   `json:"value_in_vlog"`
	VlogFile    string `json:"vlog_file,omitempty"`

	NEntries  int    `json:"n_entries"`
	NDeleted  int    `json:"n_deleted"`
	MaxSeqno  uint64 `json:"max_seqno"`
	RootFpos  uint64 `json:"root_fpos"`
	RootIsZ   bool   `json:"root_is_z"`
	Empty     bool   `json:"empty"`
	BuildTime string `json:"build_time"`

	// BloomFpos/BloomLen locate the optional presence filter blob in the
	// index file. BloomLen zero means no filter was written.
	BloomFpos uint64 `json:"bloom_fpos,omitempty"`
	BloomLen  uint64 `json:"bloom_len,omitempty"`
}

func marshalStats(s Stats) ([]byte, error) {
	return json.Marshal(s)
}

func unmarshalStats(data []byte) (Stats, error) {
	var s Stats

	err := json.Unmarshal(data, &s)

	return s, err
}
