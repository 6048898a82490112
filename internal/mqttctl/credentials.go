package mqttctl

import "golang.org/x/crypto/bcrypt"

// HashBrokerPassword hashes a gateway's MQTT broker password for storage,
// the way an operator provisioning a new gateway's broker credentials
// would — the broker itself is out of scope (§1), but credential
// provisioning touches the same store the rest of the engine writes to.
func HashBrokerPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyBrokerPassword reports whether password matches hash produced by
// HashBrokerPassword.
func VerifyBrokerPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
