package cognito

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/jdillenkofer/filedrop/internal/hooks"
)

type CognitoAPI interface {
	AdminAddUserToGroup(ctx context.Context, params *cognitoidentityprovider.AdminAddUserToGroupInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminAddUserToGroupOutput, error)
}

var _ CognitoAPI = (*cognitoidentityprovider.Client)(nil)

type groupAssigner struct {
	client CognitoAPI
}

// Compile-time check to ensure groupAssigner implements hooks.GroupAssigner
var _ hooks.GroupAssigner = (*groupAssigner)(nil)

func NewGroupAssigner(client CognitoAPI) hooks.GroupAssigner {
	return &groupAssigner{
		client: client,
	}
}

func (g *groupAssigner) AddUserToGroup(ctx context.Context, userPoolId string, username string, group string) error {
	_, err := g.client.AdminAddUserToGroup(ctx, &cognitoidentityprovider.AdminAddUserToGroupInput{
		UserPoolId: aws.String(userPoolId),
		Username:   aws.String(username),
		GroupName:  aws.String(group),
	})
	return err
}
