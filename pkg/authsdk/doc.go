/*
Package authsdk is the client side of the laboratory authentication flow:
login with an optional second factor, second-factor enrollment, backup code
management and password recovery.

# Client

An SDKClient holds the authority base URL and an http.Client whose cookie jar
carries the session cookie between calls:

	client := authsdk.NewSDKClient("https://lab.example.com")

Callers that need a different transport policy may replace HTTPClient, as long
as it keeps a cookie jar.

# Login

Login returns either a LoginOutcome or an *AuthError:

	outcome, err := client.Login(ctx, authsdk.Credentials{
		Identifier: "analyst@lab.example.com",
		Password:   password,
	})
	if err != nil {
		var authErr *authsdk.AuthError
		if errors.As(err, &authErr) {
			fmt.Println(authErr.Message)
		}
		return err
	}

	switch o := outcome.(type) {
	case *authsdk.Authenticated:
		// session established
	case *authsdk.SecondFactorRequired:
		// ask for a TOTP or backup code and call Login again with TOTPCode set
	case *authsdk.SecondFactorSetupRequired:
		// enroll with SetupInitial/VerifyInitial, or GetAdminSetupData(o.SetupToken)
	case *authsdk.CredentialChangeRequired:
		// CompleteAdminSetup
	}

When the primary endpoint answers 404, or cannot be reached, Login retries once
against the legacy endpoint with the identifier and password only. Sessions
obtained that way always report Has2FA as false. A cancelled context never
triggers the legacy attempt.

# Errors

Every failure is an *AuthError carrying a Kind and a Message that can be shown
to the user unchanged. Kinds can be matched with errors.Is against the Err*
sentinels:

	if errors.Is(err, authsdk.ErrInvalidCredentials) { ... }

Inputs are validated with package codefmt before any request is made;
validation failures have Kind KindInvalidInput.

# Recovery

ForgotPassword requests a recovery code by email, and ResetPassword consumes
it together with a TOTP or backup code. ResetPassword rewrites recognizable
server failures (expired or wrong codes, weak passwords) into canonical
messages.
*/
package authsdk
