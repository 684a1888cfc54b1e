// Package health waits for freshly provisioned hosts to become reachable
// and finish first-boot initialization.
package health

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"provizor/internal/config"
)

// Session executes commands on a remote host.
type Session interface {
	Execute(ctx context.Context, command string) (string, error)
	Close() error
}

// Target identifies the host to probe.
type Target struct {
	Addr    string
	User    string
	KeyPath string
	OS      config.OSType
}

// Checker polls a host until it is ready or the context expires.
type Checker struct {
	log *zap.Logger

	// Interval between probes.
	Interval time.Duration
	// Timeout bounds the whole wait.
	Timeout time.Duration
	// Dial opens a session to the target. Replaceable in tests.
	Dial func(ctx context.Context, t Target) (Session, error)
}

// NewChecker builds a Checker with the stock 5s/5m probe schedule.
func NewChecker(log *zap.Logger) *Checker {
	return &Checker{
		log:      log.Named("health"),
		Interval: 5 * time.Second,
		Timeout:  5 * time.Minute,
		Dial:     dialSSH,
	}
}

// Wait blocks until the host accepts SSH and, on Ubuntu, cloud-init has
// finished. NixOS hosts are considered ready as soon as SSH answers,
// since there is no cloud-init to wait for.
func (c *Checker) Wait(ctx context.Context, t Target) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	for {
		err := c.probe(ctx, t)
		if err == nil {
			c.log.Info("host ready", zap.String("host", t.Addr))
			return nil
		}
		c.log.Debug("host not ready yet", zap.String("host", t.Addr), zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("host %s not ready: %w (last: %v)", t.Addr, ctx.Err(), err)
		case <-time.After(c.Interval):
		}
	}
}

func (c *Checker) probe(ctx context.Context, t Target) error {
	sess, err := c.Dial(ctx, t)
	if err != nil {
		return err
	}
	defer sess.Close()

	if t.OS == config.OSNixOS {
		return nil
	}

	out, err := sess.Execute(ctx, "cloud-init status")
	if err != nil {
		return fmt.Errorf("cloud-init status failed: %w", err)
	}
	switch {
	case strings.Contains(out, "status: done"):
		return nil
	case strings.Contains(out, "status: disabled"):
		return nil
	case strings.Contains(out, "status: error"):
		return fmt.Errorf("cloud-init reported an error: %s", strings.TrimSpace(out))
	default:
		return fmt.Errorf("cloud-init still running: %s", strings.TrimSpace(out))
	}
}

func dialSSH(ctx context.Context, t Target) (Session, error) {
	key, err := os.ReadFile(t.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	cfg := &ssh.ClientConfig{
		User:            t.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // hosts are freshly imaged
		Timeout:         10 * time.Second,
	}
	client, err := ssh.Dial("tcp", t.Addr+":22", cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", t.Addr, err)
	}
	return &sshSession{client: client}, nil
}

type sshSession struct {
	client *ssh.Client
}

func (s *sshSession) Execute(_ context.Context, command string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close()
	out, err := sess.CombinedOutput(command)
	return string(out), err
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
