package ibc

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// parseEndpoint turns a configured endpoint address into a gRPC target and
// decides whether TLS is used.
//
//	https://host[:port]  TLS, default port 443
//	http://host[:port]   plaintext, default port 80
//	host:port            TLS only when the port is 443
//	scheme:///name       passed to the gRPC resolver as is, plaintext
func parseEndpoint(endpoint string) (target string, useTLS bool, err error) {
	switch {
	case strings.HasPrefix(endpoint, "https://"), strings.HasPrefix(endpoint, "http://"):
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
		}
		if u.Hostname() == "" {
			return "", false, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
		}
		useTLS = u.Scheme == "https"
		port := u.Port()
		if port == "" {
			port = "80"
			if useTLS {
				port = "443"
			}
		}
		return net.JoinHostPort(u.Hostname(), port), useTLS, nil

	case strings.Contains(endpoint, "://"):
		return endpoint, false, nil
	}

	if _, port, err := net.SplitHostPort(endpoint); err == nil {
		return endpoint, port == "443", nil
	}
	if endpoint == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}
	return net.JoinHostPort(endpoint, "443"), true, nil
}

func dialOptions(useTLS bool) []grpc.DialOption {
	if useTLS {
		// Empty config verifies against the system root pool.
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
		return []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
}
