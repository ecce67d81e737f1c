package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fuel-dispatch-server/config"
	"fuel-dispatch-server/database"
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/utils"
)

// register handles user registration
func register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	var existingUser models.User
	if err := database.DB.Where("phone_number = ?", req.PhoneNumber).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "User already exists",
			"message": "A user with this phone number already exists",
		})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Password hashing failed",
			"message": "Failed to process password",
		})
		return
	}

	role := models.RoleCustomer
	if req.Role != "" {
		role = models.UserRole(req.Role)
	}

	user := models.User{
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: hashedPassword,
		Role:         role,
		IsActive:     true,
	}

	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "User creation failed",
			"message": "Failed to create user account",
		})
		return
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Token generation failed",
			"message": "Failed to generate authentication token",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "User registered successfully",
		"token":      token,
		"expires_in": config.AppConfig.JWT.ExpiryHours * 3600,
		"user":       user,
	})
}

// login handles user authentication
func login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	var user models.User
	if err := database.DB.Where("phone_number = ?", req.PhoneNumber).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid credentials",
			"message": "Phone number or password is incorrect",
		})
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid credentials",
			"message": "Phone number or password is incorrect",
		})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Account deactivated",
			"message": "This account has been deactivated",
		})
		return
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Token generation failed",
			"message": "Failed to generate authentication token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      token,
		"expires_in": config.AppConfig.JWT.ExpiryHours * 3600,
		"user":       user,
	})
}

// getCurrentUser returns the authenticated user's profile
func getCurrentUser(c *gin.Context) {
	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	resp := gin.H{"user": user}

	if user.Role == models.RoleWorker {
		var worker models.Worker
		if err := database.DB.Where("user_id = ?", user.ID).First(&worker).Error; err == nil {
			resp["worker"] = worker
		}
	}
	if user.Role == models.RoleStation {
		var station models.FuelStation
		if err := database.DB.Preload("Stock").Where("user_id = ?", user.ID).First(&station).Error; err == nil {
			resp["fuel_station"] = station
		}
	}

	c.JSON(http.StatusOK, resp)
}
