package submit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/txpump/internal/fault"
	"github.com/Klingon-tech/txpump/pkg/types"
)

const baseURL = "http://submit.test:8090"

func mockedClient(t *testing.T, timeout time.Duration) *Client {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)
	return New(baseURL+"/", Options{HTTPClient: hc, Timeout: timeout})
}

func TestSubmit_Accepted(t *testing.T) {
	c := mockedClient(t, 0)
	id := strings.Repeat("5a", 32)
	raw := []byte{0x84, 0xa0, 0xa0, 0xf5, 0xf6}

	httpmock.RegisterResponder(http.MethodPost, baseURL+Path,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/cbor", req.Header.Get("Content-Type"))
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			assert.Equal(t, raw, body)
			return httpmock.NewStringResponse(http.StatusAccepted, `"`+id+`"`), nil
		})

	got, err := c.Submit(context.Background(), raw)
	require.NoError(t, err)
	want, _ := types.HexToHash(id)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Equal(t, baseURL+Path, c.URL())
}

func TestSubmit_AcceptedWithoutID(t *testing.T) {
	c := mockedClient(t, 0)
	httpmock.RegisterResponder(http.MethodPost, baseURL+Path, httpmock.NewStringResponder(http.StatusOK, "ok"))

	got, err := c.Submit(context.Background(), []byte{0x01})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestSubmit_Rejected(t *testing.T) {
	c := mockedClient(t, 0)
	httpmock.RegisterResponder(http.MethodPost, baseURL+Path,
		httpmock.NewStringResponder(http.StatusBadRequest, `{"tag":"TxSubmitFail","contents":"BadInputsUTxO"}`))

	_, err := c.Submit(context.Background(), []byte{0x01})
	assert.Equal(t, fault.SubmissionError, fault.KindOf(err))
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "BadInputsUTxO")
}

func TestSubmit_TransportError(t *testing.T) {
	c := mockedClient(t, 0)
	httpmock.RegisterResponder(http.MethodPost, baseURL+Path, httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Submit(context.Background(), []byte{0x01})
	assert.Equal(t, fault.SubmissionError, fault.KindOf(err))
}

func TestSubmit_Timeout(t *testing.T) {
	c := mockedClient(t, 20*time.Millisecond)
	httpmock.RegisterResponder(http.MethodPost, baseURL+Path,
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	_, err := c.Submit(context.Background(), []byte{0x01})
	assert.Equal(t, fault.SubmissionError, fault.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_Defaults(t *testing.T) {
	c := New("https://example.org", Options{})
	assert.Equal(t, "https://example.org/api/submit/tx", c.URL())
	assert.Equal(t, DefaultTimeout, c.timeout)
}
