package scan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastPage(values interface{}) map[string]interface{} {
	return map[string]interface{}{"values": values, "isLastPage": true}
}

// mockBitbucketServer simulates a Bitbucket Server instance with two
// projects. P1 holds one repository with two Dockerfiles plus an empty one;
// P2's repository listing fails.
func mockBitbucketServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Logf("BitBucket Mock: %s %s", r.Method, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/rest/api/1.0/projects":
			_ = json.NewEncoder(w).Encode(lastPage([]map[string]string{
				{"key": "P1"},
				{"key": "P2"},
			}))

		case "/rest/api/1.0/projects/P1/repos":
			_ = json.NewEncoder(w).Encode(lastPage([]map[string]string{
				{"slug": "app"},
			}))

		case "/rest/api/1.0/projects/P2/repos":
			// Listing failure must not cost P1's results.
			w.WriteHeader(http.StatusNotFound)

		case "/rest/api/1.0/projects/P1/repos/app/files":
			_ = json.NewEncoder(w).Encode(lastPage([]string{
				"Dockerfile",
				"docker/Dockerfile.prod",
				"docker/Dockerfile.empty",
				"README.md",
				"src/main.go",
			}))

		case "/rest/api/1.0/projects/P1/repos/app/raw/Dockerfile":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(`FROM node:18 AS build
RUN npm ci
FROM build AS test
RUN npm test
FROM node:18-slim
COPY --from=build /app/dist /srv
`))

		case "/rest/api/1.0/projects/P1/repos/app/raw/docker/Dockerfile.prod":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(`# FROM debian:bullseye
FROM --platform=linux/amd64 golang:1.21 AS builder
FROM ubuntu:20.04
FROM node:18
`))

		case "/rest/api/1.0/projects/P1/repos/app/raw/docker/Dockerfile.empty":
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestScan_EndToEnd(t *testing.T) {
	server := mockBitbucketServer(t)
	defer server.Close()

	scanner := NewScanner(ScanOptions{
		BitBucketURL:      server.URL,
		Username:          "auser",
		AccessToken:       "token",
		MaxScanGoRoutines: 2,
	})
	images := scanner.Scan(context.Background())

	// The stage alias "build" is excluded, the commented FROM contributes
	// nothing, node:18 appears in both files exactly once, and the failing
	// P2 listing does not remove P1's results.
	assert.Equal(t, []string{"golang:1.21", "node:18", "node:18-slim", "ubuntu:20.04"}, images)
}

func TestScan_OutputIsSorted(t *testing.T) {
	server := mockBitbucketServer(t)
	defer server.Close()

	scanner := NewScanner(ScanOptions{
		BitBucketURL:      server.URL,
		Username:          "auser",
		AccessToken:       "token",
		MaxScanGoRoutines: 4,
	})
	images := scanner.Scan(context.Background())

	require.NotEmpty(t, images)
	assert.True(t, sort.StringsAreSorted(images))
}

func TestScan_ExplicitProjectKeys(t *testing.T) {
	server := mockBitbucketServer(t)
	defer server.Close()

	scanner := NewScanner(ScanOptions{
		BitBucketURL:      server.URL,
		Username:          "auser",
		AccessToken:       "token",
		ProjectKeys:       []string{"P1"},
		MaxScanGoRoutines: 1,
	})
	images := scanner.Scan(context.Background())

	assert.Equal(t, []string{"golang:1.21", "node:18", "node:18-slim", "ubuntu:20.04"}, images)
}

func TestScan_AllListingsFailing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	scanner := NewScanner(ScanOptions{
		BitBucketURL:      server.URL,
		Username:          "auser",
		AccessToken:       "token",
		MaxScanGoRoutines: 2,
	})
	images := scanner.Scan(context.Background())

	assert.Empty(t, images)
}

func TestScan_MaxFileSizeSkipsOversizedDockerfiles(t *testing.T) {
	server := mockBitbucketServer(t)
	defer server.Close()

	scanner := NewScanner(ScanOptions{
		BitBucketURL:      server.URL,
		Username:          "auser",
		AccessToken:       "token",
		ProjectKeys:       []string{"P1"},
		MaxFileSize:       10,
		MaxScanGoRoutines: 1,
	})
	images := scanner.Scan(context.Background())

	assert.Empty(t, images)
}
