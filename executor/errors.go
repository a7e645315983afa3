package executor

import (
	"errors"
	"fmt"

	"github.com/govm-net/nativevm/metadata"
)

var (
	// ErrContractMetadataNotFound is returned for a contract whose main metadata is empty.
	ErrContractMetadataNotFound = errors.New("executor: contract metadata not found")
	// ErrExpectedContractMetadataFoundTrait is returned when a contract's main metadata starts
	// with a trait item.
	ErrExpectedContractMetadataFoundTrait = errors.New("executor: expected contract metadata, found trait")
)

// ContractMetadataDecodingError reports metadata the builder could not decode.
type ContractMetadataDecodingError struct {
	Code string
	Err  error
}

func (e *ContractMetadataDecodingError) Error() string {
	return fmt.Sprintf("executor: failed to decode metadata of contract %q: %v", e.Code, e.Err)
}

func (e *ContractMetadataDecodingError) Unwrap() error { return e.Err }

// DuplicateMethodInContractError reports two methods of one contract with the same
// fingerprint.
type DuplicateMethodInContractError struct {
	Code        string
	Fingerprint metadata.MethodFingerprint
}

func (e *DuplicateMethodInContractError) Error() string {
	return fmt.Sprintf("executor: duplicate method %s in contract %q", e.Fingerprint, e.Code)
}

// FailedToDeploySystemContractsError wraps the failure of the genesis transaction.
type FailedToDeploySystemContractsError struct {
	Err error
}

func (e *FailedToDeploySystemContractsError) Error() string {
	return fmt.Sprintf("executor: failed to deploy system contracts: %v", e.Err)
}

func (e *FailedToDeploySystemContractsError) Unwrap() error { return e.Err }
