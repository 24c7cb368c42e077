package merge

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/wb-go/wbf/zlog"
)

func init() {
	api.DisableConfigDir()
}

// Compressor rewrites the PDF at in as a structurally compressed PDF at out.
type Compressor interface {
	Compress(in, out string) error
}

// Profile is one pdfcpu feature set.
type Profile struct {
	Name   string
	Config func() *model.Configuration
}

// FullProfile decodes and recompresses every stream and writes object and
// cross-reference streams under strict validation.
func FullProfile() Profile {
	return Profile{
		Name: "full",
		Config: func() *model.Configuration {
			conf := model.NewDefaultConfiguration()
			conf.ValidationMode = model.ValidationStrict
			conf.DecodeAllStreams = true
			conf.WriteObjectStream = true
			conf.WriteXRefStream = true
			return conf
		},
	}
}

// ReducedProfile keeps object streams but leaves existing streams as they
// are and validates leniently.
func ReducedProfile() Profile {
	return Profile{
		Name: "reduced",
		Config: func() *model.Configuration {
			conf := model.NewDefaultConfiguration()
			conf.ValidationMode = model.ValidationRelaxed
			conf.DecodeAllStreams = false
			conf.WriteObjectStream = true
			conf.WriteXRefStream = false
			return conf
		},
	}
}

// PDFCPUCompressor optimises documents with pdfcpu, falling back through
// its profiles in order.
type PDFCPUCompressor struct {
	profiles []Profile
	optimize func(in, out string, conf *model.Configuration) error
}

// NewPDFCPUCompressor returns a compressor that tries the full profile and,
// if pdfcpu rejects it, the reduced one.
func NewPDFCPUCompressor() *PDFCPUCompressor {
	return &PDFCPUCompressor{
		profiles: []Profile{FullProfile(), ReducedProfile()},
		optimize: api.OptimizeFile,
	}
}

// Compress implements Compressor. Only the last profile's failure is returned.
func (c *PDFCPUCompressor) Compress(in, out string) error {
	var err error
	for _, p := range c.profiles {
		if err = c.optimize(in, out, p.Config()); err == nil {
			zlog.Logger.Debug().Str("profile", p.Name).Msg("pdf optimised")
			return nil
		}

		zlog.Logger.Warn().
			Err(err).
			Str("profile", p.Name).
			Msg("pdf optimisation failed")
	}

	return fmt.Errorf("compress %s: %w", in, err)
}
