package model

import (
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

// Server runs the exported classifier through ONNX Runtime. Predict builds
// its own tensors on each call, so a Server can be shared between requests.
type Server struct {
	session  *ort.DynamicAdvancedSession
	Metadata Metadata

	inputShape  ort.Shape
	outputShape ort.Shape
}

// NewServer initialises the runtime and opens a session on modelPath.
// libPath may be empty to use the runtime's default library lookup.
func NewServer(modelPath, libPath string, meta Metadata) (*Server, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}

	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName}, nil)
	if err != nil {
		ort.DestroyEnvironment()
		if isDeviceMismatch(err) {
			log.Error().Err(err).Str("path", modelPath).Msg("model load failed on device mismatch")
			return nil, clarifyLoadError(modelPath, err)
		}
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Server{
		session:     session,
		Metadata:    meta,
		inputShape:  ort.NewShape(meta.InputShape...),
		outputShape: ort.NewShape(meta.OutputShape...),
	}, nil
}

func (s *Server) Classes() []string {
	return s.Metadata.Classes
}

func (s *Server) Predict(img image.Image) (*Prediction, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("image has no pixels")
	}
	inputData := preprocessImage(img, s.Metadata.ImageSize, s.Metadata.Mean, s.Metadata.Std)

	inputTensor, err := ort.NewTensor(s.inputShape, inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](s.outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := s.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := outputTensor.GetData()
	if len(outputData) == 0 {
		return nil, errors.New("inference produced no output")
	}

	return toPrediction(distribution(outputData, s.Metadata.ApplySoftmax), s.Metadata.Classes), nil
}

func (s *Server) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
