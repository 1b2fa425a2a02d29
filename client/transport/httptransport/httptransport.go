// Package httptransport implements client.Transport over a single POST
// endpoint with a JSON request/response envelope: {query, variables} in,
// {data, errors} out.
//
// Printing an Operation back to GraphQL source text is outside this
// module's scope (the graphql package doc comment: document
// parsing, and by symmetry printing, is an external collaborator). A
// caller using this transport supplies the original query text via the
// request context map under the QuerySourceKey, typically the same
// string the document was parsed from.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/samsarahq/go/oops"
	"github.com/samsarahq/graphcache/client"
	"github.com/samsarahq/graphcache/graphql"
)

// QuerySourceKey is the reqCtx key a caller stores the operation's
// original GraphQL source text under.
const QuerySourceKey = "query"

type requestBody struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type responseBody struct {
	Data   map[string]interface{} `json:"data"`
	Errors []string               `json:"errors"`
}

// Transport POSTs each operation as a JSON envelope to a single URL.
type Transport struct {
	url        string
	httpClient *http.Client
}

// New builds a Transport against url, using httpClient (or
// http.DefaultClient if nil).
func New(url string, httpClient *http.Client) *Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Transport{url: url, httpClient: httpClient}
}

// Execute implements client.Transport.
func (t *Transport) Execute(ctx context.Context, op *graphql.Operation, vars map[string]interface{}, reqCtx map[string]interface{}) (<-chan client.Result, error) {
	query, _ := reqCtx[QuerySourceKey].(string)
	if query == "" {
		return nil, oops.Errorf("httptransport: reqCtx missing %q source text for operation %q", QuerySourceKey, op.Name)
	}

	body, err := json.Marshal(requestBody{Query: query, Variables: vars})
	if err != nil {
		return nil, oops.Wrapf(err, "marshaling request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, oops.Wrapf(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	ch := make(chan client.Result, 1)
	go func() {
		defer close(ch)

		resp, err := t.httpClient.Do(req)
		if err != nil {
			ch <- client.Result{Errors: []error{oops.Wrapf(err, "executing request")}}
			return
		}
		defer resp.Body.Close()

		var parsed responseBody
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			ch <- client.Result{Errors: []error{oops.Wrapf(err, "decoding response body")}}
			return
		}

		result := client.Result{Data: parsed.Data}
		for _, msg := range parsed.Errors {
			result.Errors = append(result.Errors, oops.Errorf("%s", msg))
		}
		ch <- result
	}()

	return ch, nil
}
