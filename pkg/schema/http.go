package schema

import (
	"net/http"
	"time"

	"github.com/agentstation/attrmap/pkg/constants"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        constants.MaxIdleConnections,
			MaxIdleConnsPerHost: constants.MaxConnectionsPerHost,
		},
	}
}
