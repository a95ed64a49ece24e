package mailer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/smtp"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailauth/internal/common"
	"github.com/dmitrijs2005/mailauth/internal/cryptox"
	"github.com/dmitrijs2005/mailauth/internal/logging"
	"github.com/jordan-wright/email"
)

// MaxWorkers caps SendWorkers+RetryWorkers, which is also the number of SMTP
// connections a single Send may open.
const MaxWorkers = 20

// SecretOpener opens a sealed secret issued at login.
type SecretOpener interface {
	Open(token string) (map[string]string, error)
}

// Options tune the fan-out of a single Send.
type Options struct {
	SendWorkers  int
	RetryWorkers int
	// GroupSize is the number of recipients per outgoing mail.
	GroupSize int
	// Timeout bounds each SMTP submission.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{SendWorkers: 4, RetryWorkers: 4, GroupSize: 10, Timeout: 5 * time.Second}
}

func (o Options) validate() error {
	switch {
	case o.SendWorkers <= 0:
		return errors.New("send workers must be positive")
	case o.RetryWorkers <= 0:
		return errors.New("retry workers must be positive")
	case o.SendWorkers+o.RetryWorkers > MaxWorkers:
		return fmt.Errorf("at most %d workers in total", MaxWorkers)
	case o.GroupSize <= 0:
		return errors.New("group size must be positive")
	case o.Timeout <= 0:
		return errors.New("timeout must be positive")
	}
	return nil
}

type pool interface {
	Send(e *email.Email, timeout time.Duration) error
	Close()
}

type poolFactory func(addr string, count int, auth smtp.Auth) (pool, error)

func newSMTPPool(addr string, count int, auth smtp.Auth) (pool, error) {
	return email.NewPool(addr, count, auth)
}

// Sender delivers messages through the caller's SMTP account.
type Sender struct {
	opener  SecretOpener
	opts    Options
	newPool poolFactory
	logger  logging.Logger
}

func NewSender(opener SecretOpener, opts Options, logger logging.Logger) (*Sender, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("mailer options: %w", err)
	}
	return &Sender{
		opener:  opener,
		opts:    opts,
		newPool: newSMTPPool,
		logger:  logger.With("module", "mailer"),
	}, nil
}

// smtpKey opens sealedSecret and returns the mail key inside it.
func (s *Sender) smtpKey(sealedSecret string) ([]byte, error) {
	payload, err := s.opener.Open(sealedSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: sealed secret: %v", common.ErrorBadRequest, err)
	}
	key, err := hex.DecodeString(payload[common.SMTPKeyField])
	if err != nil || len(key) != cryptox.KDFKeyLength {
		return nil, fmt.Errorf("%w: sealed secret carries no mail key", common.ErrorBadRequest)
	}
	return key, nil
}

// SealPassword encrypts an SMTP password under the mail key found in
// sealedSecret, for storage next to the account.
func (s *Sender) SealPassword(sealedSecret, password string) (StoredPassword, error) {
	if password == "" {
		return StoredPassword{}, fmt.Errorf("%w: empty password", common.ErrorBadRequest)
	}
	key, err := s.smtpKey(sealedSecret)
	if err != nil {
		return StoredPassword{}, err
	}
	defer common.WipeByteArray(key)

	return SealPassword(key, password)
}

// SealPassword encrypts password under smtpKey with AES-GCM.
func SealPassword(smtpKey []byte, password string) (StoredPassword, error) {
	ciphertext, nonce, err := cryptox.EncryptSecret([]byte(password), smtpKey)
	if err != nil {
		return StoredPassword{}, err
	}
	return StoredPassword{
		Ciphertext: hex.EncodeToString(ciphertext),
		Nonce:      hex.EncodeToString(nonce),
	}, nil
}

func openPassword(smtpKey []byte, p StoredPassword) (string, error) {
	ciphertext, err := hex.DecodeString(p.Ciphertext)
	if err != nil {
		return "", err
	}
	nonce, err := hex.DecodeString(p.Nonce)
	if err != nil {
		return "", err
	}
	plaintext, err := cryptox.DecryptSecret(ciphertext, nonce, smtpKey)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func validate(acct Account, msg Message) error {
	switch {
	case acct.Host == "":
		return errors.New("no smtp host")
	case acct.Port <= 0 || acct.Port > 65535:
		return errors.New("invalid smtp port")
	case msg.From == "":
		return errors.New("no sender")
	case len(msg.To) == 0:
		return errors.New("no recipients")
	case msg.Subject == "":
		return errors.New("no subject")
	case msg.Body == "":
		return errors.New("no body")
	case !msg.ContentType.IsValid():
		return fmt.Errorf("unsupported content type %q", msg.ContentType)
	}
	return nil
}

func (m Message) build(to []string) *email.Email {
	e := email.NewEmail()
	e.From = m.From
	e.To = to
	e.Subject = m.Subject
	switch m.ContentType {
	case TextPlain:
		e.Text = []byte(m.Body)
	case TextHTML:
		e.HTML = []byte(m.Body)
	}
	return e
}

// Send delivers msg through acct. Recipients are split into groups of
// Options.GroupSize and sent concurrently; every recipient of a failed group
// is retried on its own. Recipients that still fail are reported in a
// *DeliveryError. Invalid input, including a sealed secret that does not
// open or an account password it does not decrypt, is common.ErrorBadRequest.
func (s *Sender) Send(ctx context.Context, sealedSecret string, acct Account, msg Message) error {
	if err := validate(acct, msg); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorBadRequest, err)
	}

	key, err := s.smtpKey(sealedSecret)
	if err != nil {
		return err
	}
	password, err := openPassword(key, acct.Password)
	common.WipeByteArray(key)
	if err != nil {
		return fmt.Errorf("%w: smtp password does not decrypt: %v", common.ErrorBadRequest, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", acct.Username, password, acct.Host)
	p, err := s.newPool(acct.addr(), s.opts.SendWorkers+s.opts.RetryWorkers, auth)
	if err != nil {
		s.logger.Error(ctx, "smtp pool", "host", acct.Host, "error", err)
		return fmt.Errorf("smtp pool: %w", err)
	}
	defer p.Close()

	failed := s.dispatch(ctx, p, msg)
	if len(failed) > 0 {
		s.logger.Warn(ctx, "mail partially delivered", "failed", len(failed), "total", len(msg.To))
		return &DeliveryError{Failed: failed}
	}

	s.logger.Info(ctx, "mail delivered", "recipients", len(msg.To))
	return nil
}

func (s *Sender) dispatch(ctx context.Context, p pool, msg Message) []string {
	groups := make(chan []string, len(msg.To))
	retries := make(chan string, len(msg.To))

	var (
		mu     sync.Mutex
		failed []string
	)
	fail := func(to ...string) {
		mu.Lock()
		failed = append(failed, to...)
		mu.Unlock()
	}

	var retryWG sync.WaitGroup
	for range s.opts.RetryWorkers {
		retryWG.Add(1)
		go func() {
			defer retryWG.Done()
			for to := range retries {
				if err := p.Send(msg.build([]string{to}), s.opts.Timeout); err != nil {
					s.logger.Debug(ctx, "retry failed", "to", to, "error", err)
					fail(to)
				}
			}
		}()
	}

	var sendWG sync.WaitGroup
	for range s.opts.SendWorkers {
		sendWG.Add(1)
		go func() {
			defer sendWG.Done()
			for to := range groups {
				if err := p.Send(msg.build(to), s.opts.Timeout); err != nil {
					for _, r := range to {
						retries <- r
					}
				}
			}
		}()
	}

	for i := 0; i < len(msg.To); i += s.opts.GroupSize {
		end := min(i+s.opts.GroupSize, len(msg.To))
		if ctx.Err() != nil {
			fail(msg.To[i:]...)
			break
		}
		groups <- msg.To[i:end]
	}

	close(groups)
	sendWG.Wait()
	close(retries)
	retryWG.Wait()

	return failed
}
