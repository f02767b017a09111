package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.EncodeRequest(GetRequest("a")))
	require.NoError(t, enc.EncodeRequest(SetRequest("a", "1")))
	require.NoError(t, enc.EncodeRequest(RemoveRequest("a")))

	dec := NewDecoder(&buf)
	var req Request

	require.NoError(t, dec.DecodeRequest(&req))
	require.Equal(t, GetRequest("a"), req)

	require.NoError(t, dec.DecodeRequest(&req))
	require.Equal(t, SetRequest("a", "1"), req)

	// the rm request carries no value field, so decode into a zero Request
	// rather than one still holding the set's Value.
	req = Request{}
	require.NoError(t, dec.DecodeRequest(&req))
	require.Equal(t, RemoveRequest("a"), req)
}

func TestGetResponseDistinguishesAbsentFromEmptyValue(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.EncodeResponse(GetOK("", true)))
	require.NoError(t, enc.EncodeResponse(GetOK("", false)))

	dec := NewDecoder(&buf)

	var resp1 Response
	require.NoError(t, dec.DecodeResponse(&resp1))
	require.NotNil(t, resp1.Value)
	require.Equal(t, "", *resp1.Value)

	var resp2 Response
	require.NoError(t, dec.DecodeResponse(&resp2))
	require.Nil(t, resp2.Value)
}
