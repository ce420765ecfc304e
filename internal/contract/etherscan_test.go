package contract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/models"
)

const token = "0xdac17f958d2ee523a2206206994597c13d831ec7"

func newTestClient(t *testing.T, handler http.HandlerFunc) *EtherscanClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewEtherscanClient("test-key", srv.URL, 2*time.Second)
	c.retryDelay = time.Millisecond
	return c
}

func TestSourceCode_Verified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "contract", q.Get("module"))
		assert.Equal(t, "getsourcecode", q.Get("action"))
		assert.Equal(t, "137", q.Get("chainid"))
		assert.Equal(t, "test-key", q.Get("apikey"))
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"contract Token {}","ABI":"[]","ContractName":"Token","Proxy":"0"}]}`))
	})

	src, err := c.SourceCode(context.Background(), 137, token)
	require.NoError(t, err)
	assert.Equal(t, "contract Token {}", src)
}

func TestSourceCode_Unverified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"","ABI":"Contract source code not verified"}]}`))
	})

	src, err := c.SourceCode(context.Background(), 1, token)
	require.NoError(t, err)
	assert.Empty(t, src)
}

func TestSourceCode_InvalidKeyIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Invalid API Key"}`))
	})

	_, err := c.SourceCode(context.Background(), 1, token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAPI))
	assert.Contains(t, err.Error(), "Invalid API Key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{"SourceCode":"contract A {}"}]}`))
	})

	src, err := c.SourceCode(context.Background(), 1, token)
	require.NoError(t, err)
	assert.Equal(t, "contract A {}", src)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.SourceCode(context.Background(), 1, token)
	require.Error(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestGet_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.SourceCode(context.Background(), 1, token)
	assert.Error(t, err)
}

func TestTokenTransfers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "tokentx", q.Get("action"))
		assert.Equal(t, token, q.Get("contractaddress"))
		assert.Equal(t, "100", q.Get("offset"))
		assert.Equal(t, "desc", q.Get("sort"))
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[
			{"hash":"0xaa","from":"0x01","to":"0x02","value":"1000","blockNumber":"19000000","timeStamp":"1700000000"},
			{"hash":"0xbb","from":"0x02","to":"0x03","value":"5","blockNumber":"bad","timeStamp":""}
		]}`))
	})

	txs, err := c.TokenTransfers(context.Background(), 1, token, 100)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.Transfer{
		Hash:        "0xaa",
		From:        "0x01",
		To:          "0x02",
		Value:       "1000",
		BlockNumber: 19_000_000,
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
	}, txs[0])
	assert.Zero(t, txs[1].BlockNumber)
	assert.True(t, txs[1].Timestamp.IsZero())
}

func TestTokenTransfers_NoTransactions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"0","message":"No transactions found","result":[]}`))
	})

	txs, err := c.TokenTransfers(context.Background(), 1, token, 100)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTopHoldersPercent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tokenholderlist", r.URL.Query().Get("action"))
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[
			{"TokenHolderAddress":"0x01","TokenHolderQuantity":"100"},
			{"TokenHolderAddress":"0x02","TokenHolderQuantity":"50"},
			{"TokenHolderAddress":"0x03","TokenHolderQuantity":"10"}
		]}`))
	})

	pct, err := c.TopHoldersPercent(context.Background(), 1, token, 10)
	require.NoError(t, err)
	assert.Equal(t, 94.0, pct)
}

func TestEstimateTopHoldersPercent(t *testing.T) {
	holders := func(n int) []models.Holder { return make([]models.Holder, n) }

	assert.Equal(t, 90.0, EstimateTopHoldersPercent(nil))
	assert.Equal(t, 95.0, EstimateTopHoldersPercent(holders(1)))
	assert.Equal(t, 80.0, EstimateTopHoldersPercent(holders(10)))
	assert.Equal(t, 10.0, EstimateTopHoldersPercent(holders(45)))
	assert.Equal(t, 10.0, EstimateTopHoldersPercent(holders(500)))
}

func TestGet_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.SourceCode(ctx, 1, token)
	assert.Error(t, err)
}
