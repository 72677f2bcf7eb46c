package vision

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/iconidentify/chalkboard/pkg/inference"
)

// Pose actions.
const (
	ActionKickingLeft  = "kicking_left"
	ActionKickingRight = "kicking_right"
	ActionJumping      = "jumping"
	ActionRunning      = "running"
	ActionStanding     = "standing"
)

const (
	minKeypointVisibility = 0.5
	legExtension          = 0.15
	jumpClearance         = 0.1
	strideOffset          = 0.05

	possessionRadius = 100.0
	maxListedPlayers = 5
)

// Detector finds players and the ball in a JPEG frame.
type Detector interface {
	Detect(ctx context.Context, jpeg []byte) (*inference.Detections, error)
}

// PoseEstimator finds body landmarks in a JPEG frame.
type PoseEstimator interface {
	EstimatePose(ctx context.Context, jpeg []byte) (*inference.PoseResult, error)
}

// Enricher turns detector and pose output into a text block that grounds the
// vision prompt. Either backend may be nil.
type Enricher struct {
	detector Detector
	poses    PoseEstimator
	logger   *slog.Logger
}

// NewEnricher creates an enricher.
func NewEnricher(detector Detector, poses PoseEstimator, logger *slog.Logger) *Enricher {
	return &Enricher{
		detector: detector,
		poses:    poses,
		logger:   logger.With("component", "enrichment"),
	}
}

// Context runs detection and pose estimation concurrently on frame and
// returns the prompt block. Backend failures are logged and left out.
func (e *Enricher) Context(ctx context.Context, jpeg []byte, videoContext string) string {
	var (
		wg   sync.WaitGroup
		det  *inference.Detections
		pose *inference.PoseResult
	)

	if e.detector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := e.detector.Detect(ctx, jpeg)
			if err != nil {
				e.logger.Warn("object detection failed", "error", err)
				return
			}
			det = d
		}()
	}
	if e.poses != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := e.poses.EstimatePose(ctx, jpeg)
			if err != nil {
				e.logger.Warn("pose estimation failed", "error", err)
				return
			}
			pose = p
		}()
	}
	wg.Wait()

	return BuildContext(det, pose, videoContext)
}

// BuildContext renders detections and poses as prompt text.
func BuildContext(det *inference.Detections, poses *inference.PoseResult, videoContext string) string {
	var lines []string

	if videoContext != "" {
		lines = append(lines, "VIDEO CONTEXT: "+videoContext)
	}

	if det != nil {
		summary := det.Summary
		if summary == "" {
			summary = "No objects"
		}
		lines = append(lines, "\n=== OBJECT DETECTION ===", "Detected: "+summary)

		if len(det.Players) > 0 {
			lines = append(lines, fmt.Sprintf("\nPlayers detected: %d", len(det.Players)))
			for i, p := range det.Players[:min(len(det.Players), maxListedPlayers)] {
				lines = append(lines, fmt.Sprintf("  Player %d: center=(%.0f, %.0f), confidence=%.2f",
					i+1, p.BBox.CenterX, p.BBox.CenterY, p.Confidence))
			}
		}

		if det.Ball != nil {
			lines = append(lines, fmt.Sprintf("\nBall detected: center=(%.0f, %.0f), confidence=%.2f",
				det.Ball.BBox.CenterX, det.Ball.BBox.CenterY, det.Ball.Confidence))
			if idx, dist, ok := Possession(det); ok {
				lines = append(lines, fmt.Sprintf("Ball possession: Player %d (distance: %.0fpx)", idx+1, dist))
			}
		}
	}

	if poses != nil {
		lines = append(lines, "\n=== POSE ESTIMATION ===")
		var actions []string
		if len(poses.Poses) > 0 {
			lines = append(lines, fmt.Sprintf("Poses detected: %d", len(poses.Poses)))
			for i, p := range poses.Poses {
				action := ClassifyAction(p.Keypoints)
				if action == "" {
					lines = append(lines, fmt.Sprintf("  Person %d: action=unknown", i+1))
					continue
				}
				actions = append(actions, action)
				lines = append(lines, fmt.Sprintf("  Person %d: action=%s", i+1, action))
			}
		}
		if len(actions) > 0 {
			lines = append(lines, "Actions detected: "+strings.Join(actions, ", "))
		}
	}

	lines = append(lines,
		"\n=== INSTRUCTIONS ===",
		"You have EXACT object detection and pose estimation data above.",
		"Use this data to give a PRECISE, ACCURATE description of what's happening.",
		"Be specific about player positions, ball location, and actions.",
		"If object detection found a ball and players, describe their exact positions.",
		"If pose estimation detected actions (kicking, jumping, running), describe them.",
	)

	return strings.Join(lines, "\n")
}

// ClassifyAction labels a pose from its leg landmarks (y grows downward).
// It returns "" when the ankles and knees are not clearly visible.
func ClassifyAction(kp map[string]inference.Keypoint) string {
	leftFoot, ok1 := kp["LEFT_ANKLE"]
	rightFoot, ok2 := kp["RIGHT_ANKLE"]
	leftKnee, ok3 := kp["LEFT_KNEE"]
	rightKnee, ok4 := kp["RIGHT_KNEE"]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return ""
	}
	for _, p := range []inference.Keypoint{leftFoot, rightFoot, leftKnee, rightKnee} {
		if p.Visibility <= minKeypointVisibility {
			return ""
		}
	}

	leftExtended := math.Abs(leftFoot.Y-leftKnee.Y) > legExtension
	rightExtended := math.Abs(rightFoot.Y-rightKnee.Y) > legExtension

	if leftExtended && leftFoot.Y < leftKnee.Y {
		return ActionKickingLeft
	}
	if rightExtended && rightFoot.Y < rightKnee.Y {
		return ActionKickingRight
	}

	leftHip, ok5 := kp["LEFT_HIP"]
	rightHip, ok6 := kp["RIGHT_HIP"]
	if !ok5 || !ok6 {
		return ""
	}
	avgFoot := (leftFoot.Y + rightFoot.Y) / 2
	avgHip := (leftHip.Y + rightHip.Y) / 2
	if avgFoot < avgHip-jumpClearance {
		return ActionJumping
	}

	if math.Abs(leftFoot.Y-rightFoot.Y) > strideOffset {
		return ActionRunning
	}
	return ActionStanding
}

// Possession finds the player whose centre is nearest the ball, within
// 100px. It returns the player's index and distance.
func Possession(det *inference.Detections) (int, float64, bool) {
	if det == nil || det.Ball == nil || len(det.Players) == 0 {
		return 0, 0, false
	}

	bx, by := det.Ball.BBox.CenterX, det.Ball.BBox.CenterY
	best := -1
	bestDist := math.Inf(1)
	for i, p := range det.Players {
		d := math.Hypot(bx-p.BBox.CenterX, by-p.BBox.CenterY)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > possessionRadius {
		return 0, 0, false
	}
	return best, bestDist, true
}
