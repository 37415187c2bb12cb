package config

type WorkerKeyStruct struct {
	ProvisioningCompensationQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ProvisioningCompensationQueue: "provisioning_compensation_queue",
}
