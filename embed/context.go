package embed

import (
	"encoding/json"
	"net/url"
)

// QueryID is an optional query-string identifier. Present values are sent as
// strings, absent ones as the number 0.
type QueryID struct {
	Value string
	Set   bool
}

func (q QueryID) MarshalJSON() ([]byte, error) {
	if !q.Set {
		return []byte("0"), nil
	}
	return json.Marshal(q.Value)
}

// Context is everything the host needs to hand over to the embedded game.
type Context struct {
	UserToken   string  `json:"user_token"`
	Origin      string  `json:"origin"`
	GameAddress string  `json:"game_address"`
	Slug        string  `json:"slug"`
	AulaID      QueryID `json:"aula_id"`
	ConteudoID  QueryID `json:"conteudo_id"`
}

func queryID(values url.Values, name string) QueryID {
	if !values.Has(name) {
		return QueryID{}
	}
	return QueryID{Value: values.Get(name), Set: true}
}

// FromQuery fills the query-derived fields (token, origin, aula_id and
// conteudo_id) of a context.
func FromQuery(values url.Values) Context {
	return Context{
		UserToken:  values.Get("token"),
		Origin:     values.Get("origin"),
		AulaID:     queryID(values, "aula_id"),
		ConteudoID: queryID(values, "conteudo_id"),
	}
}
