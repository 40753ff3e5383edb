package protocol

import (
	"encoding/json"
	"urlguard/pkg/domain"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// DecodeResult reads a ClassificationResult object from d.
func DecodeResult(d *jx.Decoder) (*domain.ClassificationResult, error) {
	res := domain.ClassificationResult{BasicChecks: []domain.BasicCheck{}}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "riskLevel":
			s, err := d.Str()
			if err != nil {
				return err
			}
			res.RiskLevel = domain.RiskLevel(s)
		case "riskScore":
			n, err := d.Int()
			if err != nil {
				return err
			}
			res.RiskScore = n
		case "analysisLevel":
			s, err := d.Str()
			if err != nil {
				return err
			}
			res.AnalysisLevel = domain.AnalysisLevel(s)
		case "scanDuration":
			if d.Next() == jx.Null {
				return d.Null()
			}
			f, err := d.Float64()
			if err != nil {
				return err
			}
			res.ScanDuration = &f
		case "basicChecks":
			if d.Next() == jx.Null {
				return d.Null()
			}

			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCheck(d)
				if err != nil {
					return err
				}
				res.BasicChecks = append(res.BasicChecks, c)

				return nil
			})
		default:
			return d.Skip()
		}

		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode classification")
	}

	return &res, nil
}

func decodeCheck(d *jx.Decoder) (domain.BasicCheck, error) {
	var c domain.BasicCheck
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "type":
			c.Type, err = d.Str()
		case "severity":
			c.Severity, err = d.Str()
		case "message":
			c.Message, err = d.Str()
		case "details":
			if d.Next() == jx.Null {
				return d.Null()
			}
			raw, rerr := d.Raw()
			if rerr != nil {
				return rerr
			}
			err = json.Unmarshal(raw, &c.Details)
		default:
			err = d.Skip()
		}

		return err
	}); err != nil {
		return c, errors.Wrap(err, "decode check")
	}

	return c, nil
}

// EncodeResult writes res as a JSON object, or null when res is nil.
func EncodeResult(e *jx.Encoder, res *domain.ClassificationResult) {
	if res == nil {
		e.Null()

		return
	}

	e.Obj(func(e *jx.Encoder) {
		e.Field("riskLevel", func(e *jx.Encoder) { e.Str(string(res.RiskLevel)) })
		e.Field("riskScore", func(e *jx.Encoder) { e.Int(res.RiskScore) })
		e.Field("basicChecks", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range res.BasicChecks {
					encodeCheck(e, c)
				}
			})
		})
		if res.AnalysisLevel != "" {
			e.Field("analysisLevel", func(e *jx.Encoder) { e.Str(string(res.AnalysisLevel)) })
		}
		if res.ScanDuration != nil {
			e.Field("scanDuration", func(e *jx.Encoder) { e.Float64(*res.ScanDuration) })
		}
	})
}

func encodeCheck(e *jx.Encoder, c domain.BasicCheck) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str(c.Type) })
		e.Field("severity", func(e *jx.Encoder) { e.Str(c.Severity) })
		e.Field("message", func(e *jx.Encoder) { e.Str(c.Message) })
		if len(c.Details) > 0 {
			if b, err := json.Marshal(c.Details); err == nil {
				e.Field("details", func(e *jx.Encoder) { e.Raw(b) })
			}
		}
	})
}
