package commands

// Request is a parsed client command
type Request interface {
	// Command returns the lower-case command name
	Command() string
	// Keys returns the keys addressed by the request
	Keys() [][]byte
}

// GetRequest reads the scalar value of Key (GET)
type GetRequest struct {
	Key []byte
}

// SetRequest stores Value under Key (SET [EX seconds])
type SetRequest struct {
	Key   []byte
	Value []byte
	// TTLSeconds is the expiration in seconds, 0 means no expiration
	TTLSeconds int64
}

// HashLengthRequest counts the fields of the dictionary at Key (HLEN)
type HashLengthRequest struct {
	Key []byte
}

// ListIndexRequest reads the element at Index, negative indices count from the end (LINDEX)
type ListIndexRequest struct {
	Key   []byte
	Index int64
}

// ListRangeRequest addresses the inclusive range [Start, Stop]
type ListRangeRequest struct {
	Key   []byte
	Start int64
	Stop  int64
}

// ListPushRequest is LPUSH (Back == false) or RPUSH (Back == true)
type ListPushRequest struct {
	Key      []byte
	Elements [][]byte
	Back     bool
}

// SetAddRequest adds Members to the set at Key (SADD)
type SetAddRequest struct {
	Key     []byte
	Members [][]byte
}

// SetRemoveRequest removes Members from the set at Key (SREM)
type SetRemoveRequest struct {
	Key     []byte
	Members [][]byte
}

// SetDiffRequest subtracts all other sets from the set at SetKeys[0]
type SetDiffRequest struct {
	SetKeys [][]byte
}

// SetIntersectRequest returns the members common to all sets (SINTER)
type SetIntersectRequest struct {
	SetKeys [][]byte
}

// SetUnionRequest returns the members of any of the sets (SUNION)
type SetUnionRequest struct {
	SetKeys [][]byte
}

// --------------------------------------------------------------------------
// Interface Methods
// --------------------------------------------------------------------------

func (r *GetRequest) Command() string          { return "get" }
func (r *SetRequest) Command() string          { return "set" }
func (r *HashLengthRequest) Command() string   { return "hlen" }
func (r *ListIndexRequest) Command() string    { return "lindex" }
func (r *ListRangeRequest) Command() string    { return "lrange" }
func (r *SetAddRequest) Command() string       { return "sadd" }
func (r *SetRemoveRequest) Command() string    { return "srem" }
func (r *SetDiffRequest) Command() string      { return "sdiff" }
func (r *SetIntersectRequest) Command() string { return "sinter" }
func (r *SetUnionRequest) Command() string     { return "sunion" }

func (r *ListPushRequest) Command() string {
	if r.Back {
		return "rpush"
	}
	return "lpush"
}

func (r *GetRequest) Keys() [][]byte          { return [][]byte{r.Key} }
func (r *SetRequest) Keys() [][]byte          { return [][]byte{r.Key} }
func (r *HashLengthRequest) Keys() [][]byte   { return [][]byte{r.Key} }
func (r *ListIndexRequest) Keys() [][]byte    { return [][]byte{r.Key} }
func (r *ListRangeRequest) Keys() [][]byte    { return [][]byte{r.Key} }
func (r *ListPushRequest) Keys() [][]byte     { return [][]byte{r.Key} }
func (r *SetAddRequest) Keys() [][]byte       { return [][]byte{r.Key} }
func (r *SetRemoveRequest) Keys() [][]byte    { return [][]byte{r.Key} }
func (r *SetDiffRequest) Keys() [][]byte      { return r.SetKeys }
func (r *SetIntersectRequest) Keys() [][]byte { return r.SetKeys }
func (r *SetUnionRequest) Keys() [][]byte     { return r.SetKeys }
