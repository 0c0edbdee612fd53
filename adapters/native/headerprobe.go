package native

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/connectorcore/connectorcore/corekit"
)

// HeaderProbeResult is what headerProbe returns: the raw bytes received
// plus the diagnostic fields spec §4.5 requires every header-consuming
// adapter to report.
type HeaderProbeResult struct {
	Bytes                []byte
	HeadStatus           int
	RangeStatus          int
	ContentLength        int64
	ContentType          string
	AcceptRanges         string
	ContentRange         string
	RequestedHeaderBytes int
	ReceivedHeaderBytes  int
	Warnings             []string
}

// headerProbe HEADs url (tolerating 405 and other non-OK responses with a
// warning, since some servers simply don't support HEAD), then GETs the
// first n bytes via a Range request, failing if that response is not OK.
func headerProbe(ctx context.Context, client *http.Client, url string, n int) (*HeaderProbeResult, *corekit.AdapterError) {
	result := &HeaderProbeResult{RequestedHeaderBytes: n}

	headReq, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}
	}
	if headResp, err := client.Do(headReq); err == nil {
		result.HeadStatus = headResp.StatusCode
		result.ContentType = headResp.Header.Get("Content-Type")
		result.AcceptRanges = headResp.Header.Get("Accept-Ranges")
		result.ContentLength = headResp.ContentLength
		io.Copy(io.Discard, headResp.Body)
		headResp.Body.Close()
		if headResp.StatusCode != http.StatusOK {
			result.Warnings = append(result.Warnings, fmt.Sprintf("HEAD returned status %d", headResp.StatusCode))
		}
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("HEAD request failed: %v", err))
	}

	rangeReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}
	}
	rangeReq.Header.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))
	rangeResp, err := client.Do(rangeReq)
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}
	}
	defer rangeResp.Body.Close()

	result.RangeStatus = rangeResp.StatusCode
	result.ContentRange = rangeResp.Header.Get("Content-Range")
	if result.ContentType == "" {
		result.ContentType = rangeResp.Header.Get("Content-Type")
	}

	if rangeResp.StatusCode != http.StatusOK && rangeResp.StatusCode != http.StatusPartialContent {
		return nil, &corekit.AdapterError{
			Code:      corekit.ErrCodeExecutionFailed,
			Message:   fmt.Sprintf("range request returned status %d", rangeResp.StatusCode),
			Retryable: rangeResp.StatusCode >= 500,
		}
	}

	body, err := io.ReadAll(io.LimitReader(rangeResp.Body, int64(n)))
	if err != nil {
		return nil, &corekit.AdapterError{Code: corekit.ErrCodeExecutionFailed, Message: err.Error(), Retryable: true}
	}
	result.Bytes = body
	result.ReceivedHeaderBytes = len(body)
	return result, nil
}
