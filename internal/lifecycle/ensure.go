package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/localtls/internal/pki"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const tracerName = "github.com/wolfeidau/localtls/internal/lifecycle"

// Ensure loads, creates or rotates the CA and then the server pair. Rotating or
// creating the CA always replaces the server pair in the same pass, since a leaf
// signed by a deleted CA no longer chains.
func (m *Manager) Ensure(ctx context.Context) (result *Result, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "lifecycle.Ensure")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log.Info().Str("dir", m.cfg.Dir).Msg("Ensuring TLS certificates")

	// Recorded before the CA pass, which may delete the server pair.
	leafExisted := m.store.Exists(NameServer)

	ca, caState, err := m.ensureCA(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure CA certificate: %w", err)
	}

	var (
		leaf      *pki.Pair
		leafState State
	)
	if caState == StateLoaded {
		leaf, leafState, err = m.ensureLeaf(ctx, ca)
	} else {
		leaf, leafState, err = m.replaceLeaf(ctx, ca, leafExisted)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to ensure server certificate: %w", err)
	}

	span.SetAttributes(
		attribute.String("ca.state", string(caState)),
		attribute.String("server.state", string(leafState)),
	)

	return &Result{
		CA:   m.outcome(NameCA, caState, ca),
		Leaf: m.outcome(NameServer, leafState, leaf),
	}, nil
}

func (m *Manager) ensureCA(ctx context.Context) (*pki.Pair, State, error) {
	ca, err := m.store.Load(NameCA)
	if err != nil {
		log.Info().Err(err).Msg("CA certificate not found, generating new CA certificate...")
		ca, err = m.createCA(ctx)
		if err != nil {
			return nil, "", err
		}
		return ca, StateCreated, nil
	}

	log.Info().Str("path_cert", m.store.CertPath(NameCA)).Msg("CA certificate and private key found")

	validation, err := pki.CheckExpiration(ca.Cert, m.now(), m.cfg.CAWindow)
	if err != nil {
		log.Error().Err(err).Str("path_cert", m.store.CertPath(NameCA)).Msg("Can not parse CA certificate expiration, leaving it in place")
		return nil, "", err
	}

	if !validation.ShouldRotate {
		log.Debug().
			Int("days_remaining", validation.DaysRemaining).
			Msg("CA certificate is valid, using existing...")
		m.metrics.CertificatesLoadedTotal.Add(ctx, 1, identityAttr(NameCA))
		return ca, StateLoaded, nil
	}

	logRotation("CA", validation)

	// The server pair is signed by the CA being replaced, so it goes too.
	m.remove(ctx, NameCA)
	m.remove(ctx, NameServer)
	m.metrics.RotationsTotal.Add(ctx, 1, identityAttr(NameCA))

	ca, err = m.createCA(ctx)
	if err != nil {
		return nil, "", err
	}
	return ca, StateRotated, nil
}

// replaceLeaf issues a server pair for a CA created or rotated in this pass,
// whatever state the previous server pair was in.
func (m *Manager) replaceLeaf(ctx context.Context, ca *pki.Pair, existed bool) (*pki.Pair, State, error) {
	if existed {
		log.Warn().Msg("CA certificate was replaced, regenerating server certificate...")
		m.remove(ctx, NameServer)
		m.metrics.RotationsTotal.Add(ctx, 1, identityAttr(NameServer))
	}

	leaf, err := m.createLeaf(ctx, ca)
	if err != nil {
		return nil, "", err
	}
	if existed {
		return leaf, StateRotated, nil
	}
	return leaf, StateCreated, nil
}

func (m *Manager) ensureLeaf(ctx context.Context, ca *pki.Pair) (*pki.Pair, State, error) {
	leaf, err := m.store.Load(NameServer)
	if err != nil {
		log.Info().Err(err).Msg("Server certificate not found, generating server certificate...")
		leaf, err = m.createLeaf(ctx, ca)
		if err != nil {
			return nil, "", err
		}
		return leaf, StateCreated, nil
	}

	log.Info().Str("path_cert", m.store.CertPath(NameServer)).Msg("Server certificate and private key found")

	validation, err := pki.CheckExpiration(leaf.Cert, m.now(), m.cfg.LeafWindow)
	if err != nil {
		log.Error().Err(err).Str("path_cert", m.store.CertPath(NameServer)).Msg("Can not parse server certificate expiration, leaving it in place")
		return nil, "", err
	}

	switch {
	case validation.ShouldRotate:
		logRotation("Server", validation)
	case leaf.Cert.CheckSignatureFrom(ca.Cert) != nil:
		log.Warn().Msg("Server certificate is not signed by the current CA, regenerating...")
	default:
		log.Debug().
			Int("days_remaining", validation.DaysRemaining).
			Msg("Server certificate is valid, using existing...")
		m.metrics.CertificatesLoadedTotal.Add(ctx, 1, identityAttr(NameServer))
		return leaf, StateLoaded, nil
	}

	m.remove(ctx, NameServer)
	m.metrics.RotationsTotal.Add(ctx, 1, identityAttr(NameServer))

	leaf, err = m.createLeaf(ctx, ca)
	if err != nil {
		return nil, "", err
	}
	return leaf, StateRotated, nil
}

func (m *Manager) createCA(ctx context.Context) (*pki.Pair, error) {
	log.Info().Int("bits", m.cfg.CAKeyBits).Msg("Creating self signed CA certificate")

	kp, err := m.generateKeypair(ctx, NameCA, m.cfg.CAKeyBits)
	if err != nil {
		return nil, err
	}

	ca, err := m.issuer.IssueCA(kp)
	if err != nil {
		return nil, err
	}

	if err := m.persist(ctx, NameCA, ca); err != nil {
		return nil, err
	}

	log.Info().
		Str("path_cert", m.store.CertPath(NameCA)).
		Str("path_key", m.store.KeyPath(NameCA)).
		Str("fingerprint", pki.Fingerprint(ca.Cert)).
		Msg("Generated and saved CA certificate")

	return ca, nil
}

func (m *Manager) createLeaf(ctx context.Context, ca *pki.Pair) (*pki.Pair, error) {
	log.Info().Int("bits", m.cfg.LeafKeyBits).Msg("Creating server certificate")

	signer, err := pki.NewPairSigner(m.random, ca)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pki.ErrLeafSign, err)
	}

	kp, err := m.generateKeypair(ctx, NameServer, m.cfg.LeafKeyBits)
	if err != nil {
		return nil, err
	}

	sans := m.san.Resolve(ctx, m.cfg.CustomSAN)
	log.Info().Str("san", sans).Msg("Set server certificate SAN")

	leaf, err := m.issuer.IssueLeaf(signer, kp, sans)
	if err != nil {
		return nil, err
	}

	if err := m.persist(ctx, NameServer, leaf); err != nil {
		return nil, err
	}

	log.Info().
		Str("path_cert", m.store.CertPath(NameServer)).
		Str("path_key", m.store.KeyPath(NameServer)).
		Str("fingerprint", pki.Fingerprint(leaf.Cert)).
		Msg("Generated and saved server certificate")

	return leaf, nil
}

func (m *Manager) generateKeypair(ctx context.Context, name string, bits int) (*pki.Keypair, error) {
	started := time.Now()

	kp, err := pki.GenerateKeypair(m.random, bits)
	if err != nil {
		return nil, err
	}

	m.metrics.KeyGenerationDuration.Record(ctx,
		float64(time.Since(started).Milliseconds()),
		metric.WithAttributes(attribute.String("identity", name), attribute.Int("bits", bits)))

	return kp, nil
}

func (m *Manager) persist(ctx context.Context, name string, pair *pki.Pair) error {
	if err := m.store.Write(name, pair); err != nil {
		m.metrics.StoreWriteErrorsTotal.Add(ctx, 1, identityAttr(name))
		return err
	}
	m.metrics.CertificatesIssuedTotal.Add(ctx, 1, identityAttr(name))
	return nil
}

// remove deletes a pair; failures are logged, the following write replaces the
// files anyway.
func (m *Manager) remove(ctx context.Context, name string) {
	if err := m.store.Delete(name); err != nil {
		m.metrics.StoreDeleteErrorsTotal.Add(ctx, 1, identityAttr(name))
		log.Error().Err(err).Str("name", name).Msg("failed to remove key pair")
	}
}

// Cleanup deletes the named pair. Removal errors are logged, not returned.
func (m *Manager) Cleanup(ctx context.Context, name string) error {
	if name != NameCA && name != NameServer {
		return fmt.Errorf("%w: %q", ErrUnknownIdentity, name)
	}

	m.remove(ctx, name)
	log.Info().Str("name", name).Str("dir", m.cfg.Dir).Msg("Removed key pair")

	return nil
}

func (m *Manager) outcome(name string, state State, pair *pki.Pair) Outcome {
	out := Outcome{
		Name:        name,
		State:       state,
		Serial:      pair.Cert.SerialNumber.Text(16),
		Subject:     pair.Cert.Subject.String(),
		NotAfter:    pair.Cert.NotAfter,
		Fingerprint: pki.Fingerprint(pair.Cert),
	}
	if v, err := pki.CheckExpiration(pair.Cert, m.now(), pki.Window{}); err == nil {
		out.DaysRemaining = v.DaysRemaining
	}
	return out
}

func logRotation(kind string, v *pki.Validation) {
	if v.Expired {
		log.Error().
			Int("days_expired", -v.DaysRemaining).
			Msgf("%s certificate is expired, regenerating...", kind)
		return
	}
	log.Warn().
		Int("days_remaining", v.DaysRemaining).
		Msgf("%s certificate outside its lifetime window, regenerating...", kind)
}

func identityAttr(name string) metric.AddOption {
	return metric.WithAttributes(attribute.String("identity", name))
}
