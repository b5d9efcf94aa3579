package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeOTLPHTTPPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		suffix   string
		want     string
		wantErr  bool
	}{
		{
			name:     "appends suffix to bare endpoint",
			endpoint: "http://collector:4318",
			suffix:   "/v1/traces",
			want:     "http://collector:4318/v1/traces",
		},
		{
			name:     "keeps endpoint that already carries suffix",
			endpoint: "https://collector:4318/v1/metrics",
			suffix:   "/v1/metrics",
			want:     "https://collector:4318/v1/metrics",
		},
		{
			name:     "drops trailing slash before appending",
			endpoint: "http://collector:4318/otlp/",
			suffix:   "/v1/traces",
			want:     "http://collector:4318/otlp/v1/traces",
		},
		{
			name:     "preserves query parameters",
			endpoint: "http://collector:4318?tenant=bridge",
			suffix:   "/v1/metrics",
			want:     "http://collector:4318/v1/metrics?tenant=bridge",
		},
		{
			name:     "accepts suffix without leading slash",
			endpoint: "http://collector:4318",
			suffix:   "v1/traces",
			want:     "http://collector:4318/v1/traces",
		},
		{
			name:     "rejects empty endpoint",
			endpoint: "   ",
			suffix:   "/v1/traces",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeOTLPHTTPPath(tt.endpoint, tt.suffix)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseGRPCEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		endpoint     string
		wantHost     string
		wantInsecure bool
		wantErr      bool
	}{
		{
			name:         "bare host and port is insecure",
			endpoint:     "collector:4317",
			wantHost:     "collector:4317",
			wantInsecure: true,
		},
		{
			name:         "grpc scheme is insecure",
			endpoint:     "grpc://collector:4317",
			wantHost:     "collector:4317",
			wantInsecure: true,
		},
		{
			name:         "http scheme is insecure",
			endpoint:     "http://collector:4317",
			wantHost:     "collector:4317",
			wantInsecure: true,
		},
		{
			name:         "https scheme keeps TLS",
			endpoint:     "https://collector:4317",
			wantHost:     "collector:4317",
			wantInsecure: false,
		},
		{
			name:         "grpcs scheme keeps TLS",
			endpoint:     "grpcs://collector:4317",
			wantHost:     "collector:4317",
			wantInsecure: false,
		},
		{
			name:     "rejects unknown scheme",
			endpoint: "ftp://collector:4317",
			wantErr:  true,
		},
		{
			name:     "rejects empty endpoint",
			endpoint: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			host, insecure, err := parseGRPCEndpoint(tt.endpoint)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantHost, host)
			require.Equal(t, tt.wantInsecure, insecure)
		})
	}
}
