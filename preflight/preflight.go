// Package preflight checks, before an operation is sent, whether a principal
// is allowed to perform it. The check runs IAM policy simulation for the
// operation's IAM action and caches the decision per action for the life of
// the Checker, so a batch run simulates each action once.
package preflight

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/gurre/awsop/aws"
	"github.com/gurre/awsop/schema"
	"go.uber.org/zap"
)

// PermissionDeniedError reports a simulated decision other than allowed.
type PermissionDeniedError struct {
	Principal string
	Action    string
	Decision  string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("%s is not allowed to perform %s (%s)", e.Principal, e.Action, e.Decision)
}

// Checker simulates IAM decisions for one principal.
type Checker struct {
	client    aws.IAMClient
	principal string
	logger    *zap.Logger

	mu        sync.Mutex
	decisions map[string]string
}

// NewChecker creates a Checker for principalARN, a user, group or role ARN.
// Example:
//
//	checker := preflight.NewChecker(clients.IAM, "arn:aws:iam::123456789012:role/deployer", logger)
//	if err := checker.Check(ctx, op); err != nil {
//	    return err
//	}
func NewChecker(client aws.IAMClient, principalARN string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		client:    client,
		principal: principalARN,
		logger:    logger,
		decisions: make(map[string]string),
	}
}

// Check returns nil when the principal may perform op, a
// *PermissionDeniedError when the simulation denies it, and a wrapped error
// when the simulation itself fails.
func (c *Checker) Check(ctx context.Context, op *schema.Operation) error {
	action := op.IAMAction()

	c.mu.Lock()
	decision, cached := c.decisions[action]
	c.mu.Unlock()

	if !cached {
		var err error
		decision, err = c.simulate(ctx, action)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.decisions[action] = decision
		c.mu.Unlock()
		c.logger.Debug("preflight decision",
			zap.String("principal", c.principal),
			zap.String("action", action),
			zap.String("decision", decision))
	}

	if decision != string(types.PolicyEvaluationDecisionTypeAllowed) {
		return &PermissionDeniedError{Principal: c.principal, Action: action, Decision: decision}
	}
	return nil
}

func (c *Checker) simulate(ctx context.Context, action string) (string, error) {
	out, err := c.client.SimulatePrincipalPolicy(ctx, &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: &c.principal,
		ActionNames:     []string{action},
	})
	if err != nil {
		return "", fmt.Errorf("failed to simulate %s for %s: %w", action, c.principal, err)
	}
	for _, r := range out.EvaluationResults {
		if r.EvalActionName != nil && *r.EvalActionName == action {
			return string(r.EvalDecision), nil
		}
	}
	return string(types.PolicyEvaluationDecisionTypeImplicitDeny), nil
}
