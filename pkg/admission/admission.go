// Package admission validates, deduplicates and throttles incoming
// comparison submissions before they become request rows.
package admission

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/machaonweb/machaonweb/pkg/archive"
	"github.com/machaonweb/machaonweb/pkg/log"
	"github.com/machaonweb/machaonweb/pkg/types"
)

// Admission status codes returned to the client. Zero is acceptance; every
// rejection names the first check that failed.
const (
	StatusAccepted         = 0
	StatusBadReference     = -1
	StatusThrottled        = -2
	StatusUnknownList      = -3
	StatusEmptyCandidate   = -4
	StatusEmptyCustomList  = -5
	StatusNoCandidates     = -6
	StatusBadSegment       = -7
	StatusCaptchaFailed    = -8
	StatusBadMode          = -9
	StatusBadAlignment     = -10
	StatusEmptyFingerprint = -11
)

// Input length caps, counted in grapheme clusters.
const (
	maxCustomListLength = 5000
	maxReferenceLength  = 40
)

// Submission is a parsed user submission. Absent numeric fields default to
// -1 and absent strings to "" before reaching the ladder.
type Submission struct {
	CandidateList  int
	CustomList     string
	Reference      string
	Token          string
	ComparisonMode int
	AlignmentLevel int
	SegmentStart   int
	SegmentEnd     int
	Meta           bool
}

// Response is the admission outcome serialized back to the client.
type Response struct {
	StatusCode int    `json:"status_code"`
	Hash       string `json:"hash"`
	RequestID  int64  `json:"request_id"`
}

// Store is the slice of the persistence layer the admission ladder needs.
type Store interface {
	RecentRequestExists() (bool, error)
	VerifyCandidateList(id int) (bool, error)
	UncachedOf(ids []string) ([]string, error)
	InsertRequest(nr types.NewRequest) error
	FindRequestIDByHash(hash string) (int64, error)
}

// Service runs the admission ladder.
type Service struct {
	store    Store
	verifier Verifier
}

// NewService builds an admission service over the given store and CAPTCHA
// verifier.
func NewService(store Store, verifier Verifier) *Service {
	return &Service{store: store, verifier: verifier}
}

// CreateRequest runs the full admission ladder over a submission. The checks
// run in a fixed order and the first failure decides the status code; later
// checks never overwrite an earlier rejection. An accepted submission is
// persisted and answered with its fingerprint and request id.
func (s *Service) CreateRequest(ctx context.Context, sub Submission) (Response, error) {
	logger := log.WithComponent("admission")

	customInput := normalizeInput(sub.CustomList, maxCustomListLength)
	referenceInput := normalizeInput(sub.Reference, maxReferenceLength)
	refParts := CheckCompositeID(referenceInput)

	status := StatusAccepted
	referenceID := ""
	uncached := ""
	listNameFound := false
	var structureIDs []string
	hash := ""
	requestID := int64(-1)

	captchaOK, err := s.verifier.Verify(ctx, sub.Token)
	if err != nil {
		return Response{}, err
	}
	if !captchaOK {
		status = StatusCaptchaFailed
	}

	if status == StatusAccepted && (sub.ComparisonMode < 0 || sub.ComparisonMode > 2) {
		status = StatusBadMode
	}

	if status == StatusAccepted && sub.ComparisonMode == types.ModeSegment &&
		(sub.AlignmentLevel < 0 || sub.AlignmentLevel > 3) {
		status = StatusBadAlignment
	}

	if status == StatusAccepted {
		if len(refParts) > 0 {
			referenceID = strings.Join(refParts, "_")
		} else {
			status = StatusBadReference
		}
	}

	if status == StatusAccepted {
		recent, err := s.store.RecentRequestExists()
		if err != nil {
			logger.Debug().Err(err).Msg("throttle check failed")
			recent = false
		}
		if recent {
			status = StatusThrottled
		}
	}

	// Preset list branch.
	if status == StatusAccepted && sub.CandidateList > -1 {
		if sub.ComparisonMode == types.ModeSegment {
			status = StatusEmptyFingerprint
		} else {
			found, err := s.store.VerifyCandidateList(sub.CandidateList)
			if err != nil {
				logger.Debug().Err(err).Msg("candidate list lookup failed")
				found = false
			}
			listNameFound = found
			if !listNameFound {
				status = StatusUnknownList
			} else {
				ids, err := s.store.UncachedOf([]string{refParts[0]})
				if err != nil {
					logger.Debug().Err(err).Msg("uncached lookup failed")
					ids = nil
				}
				uncached = strings.Join(ids, ",")
			}
		}
	}

	// Custom list branch.
	customIDs := strings.Split(customInput, ",")
	if status == StatusAccepted && !listNameFound {
		if len(customIDs) > 0 {
			for _, id := range customIDs {
				if len(id) == 0 {
					status = StatusEmptyCandidate
					break
				}
				if !contains(structureIDs, id) {
					structureIDs = append(structureIDs, id)
				}
			}
			if len(structureIDs) > 0 && status == StatusAccepted {
				ids, err := s.store.UncachedOf(append(append([]string{}, structureIDs...), refParts[0]))
				if err != nil {
					logger.Debug().Err(err).Msg("uncached lookup failed")
					ids = nil
				}
				uncached = strings.Join(ids, ",")
			}
		} else {
			status = StatusEmptyCustomList
		}
		if status == StatusAccepted && len(structureIDs) == 0 {
			status = StatusNoCandidates
		}
	}

	segmentStart := sub.SegmentStart
	segmentEnd := sub.SegmentEnd
	if sub.ComparisonMode == types.ModeSegment {
		if status == StatusAccepted && !validSegment(segmentStart, segmentEnd) {
			status = StatusBadSegment
		}
	} else {
		segmentStart = -1
		segmentEnd = -1
	}

	if status == StatusAccepted {
		customList := strings.Join(structureIDs, ",")

		candidates := ""
		if len(customList) > 0 {
			candidates = customList
		} else if sub.CandidateList > 0 {
			candidates = strconv.Itoa(sub.CandidateList)
		}

		if len(candidates) == 0 {
			status = StatusEmptyFingerprint
		} else {
			payload := strings.Join([]string{
				referenceID, candidates,
				strconv.Itoa(sub.ComparisonMode),
				strconv.Itoa(segmentStart),
				strconv.Itoa(segmentEnd),
				strconv.Itoa(sub.AlignmentLevel),
			}, "\n")
			hash = archive.DefaultHash(payload)

			err := s.store.InsertRequest(types.NewRequest{
				Reference:        referenceID,
				CandidatesListID: sub.CandidateList,
				CustomList:       customList,
				Uncached:         uncached,
				HashValue:        hash,
				Meta:             sub.Meta,
				GoTerm:           "",
				ComparisonMode:   sub.ComparisonMode,
				SegmentStart:     segmentStart,
				SegmentEnd:       segmentEnd,
				AlignmentLevel:   sub.AlignmentLevel,
			})
			if err != nil {
				return Response{}, err
			}
			if requestID, err = s.store.FindRequestIDByHash(hash); err != nil {
				return Response{}, err
			}
		}
	}

	return Response{StatusCode: status, Hash: hash, RequestID: requestID}, nil
}

// validSegment reports whether a residue range is acceptable for segment
// mode. The window must lie in 1..10000 and span more than 2 but at most 600
// residues.
func validSegment(start, end int) bool {
	if start < 1 || end < start || end > 10000 {
		return false
	}
	span := end - start
	return span > 2 && span <= 600
}

var (
	pdbIDPattern = regexp.MustCompile(`[A-Z0-9]{4}`)
	afIDPattern  = regexp.MustCompile(`AF-[A-Z0-9]{3,}-F[0-9]*-MODEL_V4`)
	esmIDPattern = regexp.MustCompile(`MGYP[0-9]{12}`)
)

// CheckStructureID returns the id unchanged when it looks like a PDB,
// AlphaFold or ESM Atlas identifier, and "" otherwise.
func CheckStructureID(structureID string) string {
	if !pdbIDPattern.MatchString(structureID) &&
		!afIDPattern.MatchString(structureID) &&
		!esmIDPattern.MatchString(structureID) {
		return ""
	}
	return structureID
}

// CheckCompositeID splits an id of the form STRUCTURE_CHAIN, uppercases the
// parts and validates them. It returns nil when the structure part matches no
// known identifier family or the chain part is missing or non-alphanumeric.
func CheckCompositeID(id string) []string {
	parts := strings.Split(id, "_")
	for i, p := range parts {
		parts[i] = strings.ToUpper(strings.TrimSpace(p))
	}

	structureID := ""
	if len(parts) > 0 {
		structureID = parts[0]
	}
	chainID := ""
	if len(parts) > 1 {
		chainID = parts[1]
	}

	structureID = CheckStructureID(structureID)
	if chainID != "" && !isAlphanumeric(chainID) {
		chainID = ""
	}
	if structureID == "" || chainID == "" {
		return nil
	}
	return parts
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// normalizeInput trims and uppercases user input, caps it at max grapheme
// clusters and restores the lowercase AlphaFold version marker.
func normalizeInput(raw string, max int) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = truncateGraphemes(s, max)
	return strings.ReplaceAll(s, "-MODEL_V", "-model_v")
}

// truncateGraphemes caps s at max grapheme clusters. Strings already within
// the cap are returned unchanged.
func truncateGraphemes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	var b strings.Builder
	gr := uniseg.NewGraphemes(s)
	for i := 0; i < max && gr.Next(); i++ {
		b.WriteString(gr.Str())
	}
	return b.String()
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
