package middleware

import (
	"encoding/binary"
	"hash/fnv"
	"os"

	bwmarrin "github.com/bwmarrin/snowflake"
)

// NewRequestIDNode builds the snowflake node used to tag observed
// requests in logs. The node ID is derived from the hostname so
// replicas do not collide; an unset hostname falls back to node 0.
func NewRequestIDNode() (*bwmarrin.Node, error) {
	return bwmarrin.NewNode(nodeID())
}

func nodeID() int64 {
	hostname := os.Getenv("HOSTNAME")
	if hostname == "" {
		return 0
	}

	h := fnv.New64a()
	h.Write([]byte(hostname))
	return int64(binary.BigEndian.Uint64(h.Sum(nil)) % 1024)
}
