package config

type WorkerKeyStruct struct {
	VerificationQueue string
}

var WorkerKey = &WorkerKeyStruct{
	VerificationQueue: "amt_verification_queue",
}
